package security

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9]{32}$`)

func TestPolicy_Shape(t *testing.T) {
	gen := NewGenerator(nil, "/assets/")

	policy, err := gen.NewPolicy()
	require.NoError(t, err)

	assert.Regexp(t, tokenPattern, policy.Token)

	csp := policy.ContentSecurityPolicy("http://127.0.0.1:8080/")
	assert.Contains(t, csp, "default-src 'none'")
	assert.Contains(t, csp, "img-src 'none'")
	assert.Contains(t, csp, "style-src http://127.0.0.1:8080/assets/")
	assert.Contains(t, csp, "script-src 'nonce-"+policy.Token+"'")
	assert.Contains(t, csp, "connect-src ws://127.0.0.1:8080")
	assert.NotContains(t, csp, "unsafe-inline")
	assert.NotContains(t, csp, "*")
}

func TestPolicy_SecureOrigin(t *testing.T) {
	policy := Policy{Token: "t", AssetPath: "/assets/"}

	assert.Contains(t, policy.ContentSecurityPolicy("https://sheets.local"), "connect-src wss://sheets.local")
	assert.Contains(t, policy.ContentSecurityPolicy("file://x"), "connect-src 'none'")
}

func TestGenerator_UniqueTokens(t *testing.T) {
	gen := NewGenerator(nil, "/assets/")

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		policy, err := gen.NewPolicy()
		require.NoError(t, err)
		assert.False(t, seen[policy.Token], "token reused")
		seen[policy.Token] = true
	}
}

func TestGenerator_NeverReusesTokenFromRepeatingSource(t *testing.T) {
	// 随机源一直返回同样的字节：第二次必须失败，而不是复用令牌
	gen := NewGenerator(repeatReader{b: 'a'}, "/assets/")

	first, err := gen.NewPolicy()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(string(tokenAlphabet['a'%len(tokenAlphabet)]), TokenLength), first.Token)

	_, err = gen.NewPolicy()
	assert.Error(t, err)
}

func TestGenerator_DeterministicSource(t *testing.T) {
	// 相同随机输入 -> 相同令牌（不同生成器之间）
	src := bytes.Repeat([]byte{0, 1, 2, 3, 61, 62, 255}, 20)

	p1, err := NewGenerator(bytes.NewReader(src), "/assets/").NewPolicy()
	require.NoError(t, err)
	p2, err := NewGenerator(bytes.NewReader(src), "/assets/").NewPolicy()
	require.NoError(t, err)

	assert.Equal(t, p1.Token, p2.Token)
	assert.Regexp(t, tokenPattern, p1.Token)
}

func TestGenerator_RandomSourceError(t *testing.T) {
	gen := NewGenerator(errReader{}, "/assets/")

	_, err := gen.NewPolicy()
	assert.Error(t, err)
}

type repeatReader struct{ b byte }

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
	}
	return len(p), nil
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }
