package stdlib

import (
	"time"

	"github.com/gorilla/websocket"

	"ember/internal/value"
	"ember/internal/vm"
)

// Net is the std.net native package: a synchronous WebSocket client.
// ember's interpreter is strictly single-threaded, so there is no
// background reader goroutine feeding a channel; send/receive issue a
// blocking read or write directly on the call that asks for one.
func Net(v *vm.VM) (value.Value, error) {
	exports := value.NewMap()
	exports.Set(value.NewStr("ws_connect"), nativeFn("ws_connect", 1, netWSConnect))
	return exports, nil
}

func netWSConnect(ctx *vm.Context, args []value.Value) (value.Value, error) {
	url, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("net.ws_connect: expected a url str argument")
	}
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, ctx.Throwf("net.ws_connect: %v", err)
	}

	handle := value.NewMap()
	handle.Set(value.NewStr("send"), nativeFn("send", 1, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		msg, ok := strArg(args, 0)
		if !ok {
			return nil, ctx.Throw("net.send: expected a str argument")
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return nil, ctx.Throwf("net.send: %v", err)
		}
		return value.NullValue, nil
	}))
	handle.Set(value.NewStr("receive"), nativeFn("receive", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, ctx.Throwf("net.receive: %v", err)
		}
		return value.NewStr(string(data)), nil
	}))
	handle.Set(value.NewStr("close"), nativeFn("close", 0, func(ctx *vm.Context, args []value.Value) (value.Value, error) {
		if err := conn.Close(); err != nil {
			return nil, ctx.Throwf("net.close: %v", err)
		}
		return value.NullValue, nil
	}))
	return handle, nil
}
