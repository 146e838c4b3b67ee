package global

import (
	"net/http"

	"DreamsChat/tools/errs"
)

// Msg HTTP 接口统一返回体
type Msg struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func Success(data any) *Msg {
	return &Msg{Code: 0, Msg: "ok", Data: data}
}

// Fail 非 CodeError 一律按内部错误返回，不暴露原始错误
func Fail(err error) *Msg {
	ce := errs.As(err)
	if ce == nil {
		ce = &errs.CodeError{Code: errs.ServerInternalError, Msg: errs.ErrInternalServer.Msg}
	}
	return &Msg{Code: ce.Code, Msg: ce.Msg, Detail: ce.Detail}
}

// HTTPStatus 错误码到 HTTP 状态
func HTTPStatus(err error) int {
	ce := errs.As(err)
	if ce == nil {
		return http.StatusInternalServerError
	}
	switch ce.Code {
	case errs.ArgsError, errs.BadFrameError:
		return http.StatusBadRequest
	case errs.TokenMissingError, errs.TokenInvalidError:
		return http.StatusUnauthorized
	case errs.NotMemberError:
		return http.StatusForbidden
	case errs.ShuttingDownError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
