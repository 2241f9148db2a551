package stdlib

import (
	"crypto/rand"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/blake2b"

	"ember/internal/value"
	"ember/internal/vm"
)

// Crypto is the std.crypto native package: a content hash (blake2b, a
// faster non-legacy alternative to the sha2 family) and a minimal
// edwards25519 scalar-arithmetic surface.
func Crypto(v *vm.VM) (value.Value, error) {
	exports := value.NewMap()
	exports.Set(value.NewStr("hash"), nativeFn("hash", 1, cryptoHash))
	exports.Set(value.NewStr("random_scalar"), nativeFn("random_scalar", 0, cryptoRandomScalar))
	exports.Set(value.NewStr("scalar_add"), nativeFn("scalar_add", 2, cryptoScalarAdd))
	return exports, nil
}

func cryptoHash(ctx *vm.Context, args []value.Value) (value.Value, error) {
	s, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("crypto.hash: expected a str argument")
	}
	sum := blake2b.Sum256([]byte(s))
	return value.NewStr(hexEncode(sum[:])), nil
}

// cryptoRandomScalar generates a uniformly random edwards25519 scalar
// and returns its canonical hex encoding — the building block a
// higher-level signing scheme would layer on top of.
func cryptoRandomScalar(ctx *vm.Context, args []value.Value) (value.Value, error) {
	var buf [64]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, ctx.Throwf("crypto.random_scalar: %v", err)
	}
	sc, err := edwards25519.NewScalar().SetUniformBytes(buf[:])
	if err != nil {
		return nil, ctx.Throwf("crypto.random_scalar: %v", err)
	}
	return value.NewStr(hexEncode(sc.Bytes())), nil
}

// cryptoScalarAdd adds two hex-encoded edwards25519 scalars, exercising
// the group-arithmetic surface filippo.io/edwards25519 exists for.
func cryptoScalarAdd(ctx *vm.Context, args []value.Value) (value.Value, error) {
	aHex, ok := strArg(args, 0)
	if !ok {
		return nil, ctx.Throw("crypto.scalar_add: expected two hex-scalar str arguments")
	}
	bHex, ok := strArg(args, 1)
	if !ok {
		return nil, ctx.Throw("crypto.scalar_add: expected two hex-scalar str arguments")
	}
	aBytes, err := hexDecode(aHex)
	if err != nil {
		return nil, ctx.Throwf("crypto.scalar_add: %v", err)
	}
	bBytes, err := hexDecode(bHex)
	if err != nil {
		return nil, ctx.Throwf("crypto.scalar_add: %v", err)
	}
	a, err := edwards25519.NewScalar().SetCanonicalBytes(aBytes)
	if err != nil {
		return nil, ctx.Throwf("crypto.scalar_add: %v", err)
	}
	b, err := edwards25519.NewScalar().SetCanonicalBytes(bBytes)
	if err != nil {
		return nil, ctx.Throwf("crypto.scalar_add: %v", err)
	}
	sum := edwards25519.NewScalar().Add(a, b)
	return value.NewStr(hexEncode(sum.Bytes())), nil
}

const hexDigits = "0123456789abcdef"

func hexEncode(b []byte) string {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexDigits[c>>4]
		out[i*2+1] = hexDigits[c&0x0f]
	}
	return string(out)
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errInvalidHex
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, ok1 := hexNibble(s[i*2])
		lo, ok2 := hexNibble(s[i*2+1])
		if !ok1 || !ok2 {
			return nil, errInvalidHex
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

var errInvalidHex = value.Throwf("invalid hex string")
