package chat

import (
	"encoding/json"
	"testing"

	"DreamsChat/tools/errs"

	"github.com/stretchr/testify/require"
)

func TestParseAuthFrame(t *testing.T) {
	req := require.New(t)

	tok, err := ParseAuthFrame([]byte(`{"token":"  abc  ","content":"ignored"}`))
	req.NoError(err)
	req.Equal("abc", tok)

	_, err = ParseAuthFrame([]byte(`{"content":"hi"}`))
	req.True(errs.ErrTokenMissing.Is(err))

	_, err = ParseAuthFrame([]byte(`token=abc`))
	req.True(errs.ErrBadFrame.Is(err))
}

func TestParseFrames_RejectNonStringFields(t *testing.T) {
	req := require.New(t)

	for _, raw := range []string{`{"token":1001}`, `{"token":true}`, `{"token":["a"]}`} {
		_, err := ParseAuthFrame([]byte(raw))
		req.True(errs.ErrBadFrame.Is(err), raw)
	}

	for _, raw := range []string{`{"content":true}`, `{"content":12345}`, `{"content":1.5}`, `{"content":{"a":1}}`, `{"content":["x"]}`} {
		_, err := ParseContentFrame([]byte(raw))
		req.True(errs.ErrBadFrame.Is(err), raw)
	}
}

func TestParseContentFrame(t *testing.T) {
	req := require.New(t)

	c, err := ParseContentFrame([]byte(`{"content":"\t hello \n"}`))
	req.NoError(err)
	req.Equal("hello", c)

	c, err = ParseContentFrame([]byte(`{"other":1}`))
	req.NoError(err)
	req.Empty(c)

	_, err = ParseContentFrame([]byte(`[]`))
	req.Error(err)
}

func TestOutboundShapes(t *testing.T) {
	req := require.New(t)

	b, err := json.Marshal(NewMessageFrame(1, 7, "hi", DeviceMobile))
	req.NoError(err)
	req.JSONEq(`{"type":"message","conversation_id":1,"sender_id":7,"content":"hi","device":"mobile"}`, string(b))

	b, err = json.Marshal(NewSystemFrame(SystemEventLeave, 1, 7, DeviceDesktop))
	req.NoError(err)
	req.JSONEq(`{"type":"system","event":"leave","conversation_id":1,"uid":7,"device":"desktop"}`, string(b))
}
