package stdlib

import (
	"github.com/google/uuid"

	"ember/internal/value"
	"ember/internal/vm"
)

// ID is the std.id native package: UUID generation/parsing, returned
// as Tagged("uuid", str) values so a script can tell a UUID str apart
// from an ordinary one via unwrap_tagged.
func ID(v *vm.VM) (value.Value, error) {
	exports := value.NewMap()
	exports.Set(value.NewStr("new"), nativeFn("new", 0, idNew))
	exports.Set(value.NewStr("parse"), nativeFn("parse", 1, idParse))
	return exports, nil
}

func idNew(ctx *vm.Context, args []value.Value) (value.Value, error) {
	return &value.Tagged{Name: "uuid", Payload: value.NewStr(uuid.New().String())}, nil
}

func idParse(ctx *vm.Context, args []value.Value) (value.Value, error) {
	s, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("id.parse: expected a str argument")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return nil, ctx.Throwf("id.parse: %v", err)
	}
	return &value.Tagged{Name: "uuid", Payload: value.NewStr(parsed.String())}, nil
}
