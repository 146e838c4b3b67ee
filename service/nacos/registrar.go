package nacos

import (
	"fmt"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// namingClient naming_client.INamingClient 的子集
type namingClient interface {
	RegisterInstance(param vo.RegisterInstanceParam) (bool, error)
	DeregisterInstance(param vo.DeregisterInstanceParam) (bool, error)
}

type Instance struct {
	ServiceName string
	Group       string
	IP          string
	Port        uint64
	Metadata    map[string]string
}

// Registrar 把网关节点注册为临时实例，关闭时注销
type Registrar struct {
	client namingClient
	inst   Instance
}

func NewRegistrar(client namingClient, inst Instance) *Registrar {
	if inst.Group == "" {
		inst.Group = "DEFAULT_GROUP"
	}
	return &Registrar{client: client, inst: inst}
}

func (r *Registrar) Register() error {
	ok, err := r.client.RegisterInstance(vo.RegisterInstanceParam{
		Ip:          r.inst.IP,
		Port:        r.inst.Port,
		ServiceName: r.inst.ServiceName,
		GroupName:   r.inst.Group,
		ClusterName: "DEFAULT",
		Weight:      1,
		Enable:      true,
		Healthy:     true,
		Ephemeral:   true,
		Metadata:    r.inst.Metadata,
	})
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("register failed: returned false")
	}
	return nil
}

func (r *Registrar) Deregister() error {
	ok, err := r.client.DeregisterInstance(vo.DeregisterInstanceParam{
		Ip:          r.inst.IP,
		Port:        r.inst.Port,
		ServiceName: r.inst.ServiceName,
		GroupName:   r.inst.Group,
		Cluster:     "DEFAULT",
		Ephemeral:   true,
	})
	if err != nil {
		return fmt.Errorf("deregister failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("deregister failed: instance not found")
	}
	return nil
}
