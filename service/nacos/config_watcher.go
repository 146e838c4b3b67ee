package nacos

import (
	"sync"

	"DreamsChat/tools/errs"
	"DreamsChat/tools/safe"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"
)

// configClient config_client.IConfigClient 的子集
type configClient interface {
	GetConfig(param vo.ConfigParam) (string, error)
	ListenConfig(param vo.ConfigParam) error
	CancelListenConfig(param vo.ConfigParam) error
}

// Watcher 拉取并监听一份远端配置；变更回调在 nacos 的回调协程里执行
type Watcher struct {
	client   configClient
	dataID   string
	group    string
	onChange func(data string)
	log      *zap.Logger

	mu      sync.RWMutex
	current string
}

func NewWatcher(client configClient, dataID, group string, onChange func(data string), log *zap.Logger) *Watcher {
	if group == "" {
		group = "DEFAULT_GROUP"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{client: client, dataID: dataID, group: group, onChange: onChange, log: log}
}

// Fetch 启动时同步拉取一次
func (w *Watcher) Fetch() (string, error) {
	content, err := w.client.GetConfig(vo.ConfigParam{DataId: w.dataID, Group: w.group})
	if err != nil {
		return "", errs.WrapMsg(err, "nacos get config", "dataId", w.dataID, "group", w.group)
	}
	w.set(content)
	return content, nil
}

func (w *Watcher) Start() error {
	err := w.client.ListenConfig(vo.ConfigParam{
		DataId:   w.dataID,
		Group:    w.group,
		OnChange: w.handle,
	})
	return errs.WrapMsg(err, "nacos listen config", "dataId", w.dataID)
}

func (w *Watcher) handle(_, _, dataID, data string) {
	defer safe.Recover("nacos-config-change", nil)
	w.log.Info("[Nacos] config changed", zap.String("dataId", dataID), zap.Int("bytes", len(data)))
	w.set(data)
	if w.onChange != nil {
		w.onChange(data)
	}
}

func (w *Watcher) Stop() error {
	return w.client.CancelListenConfig(vo.ConfigParam{DataId: w.dataID, Group: w.group})
}

func (w *Watcher) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *Watcher) set(data string) {
	w.mu.Lock()
	w.current = data
	w.mu.Unlock()
}
