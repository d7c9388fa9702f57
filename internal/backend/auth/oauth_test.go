package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOAuthSignature_KnownVector(t *testing.T) {
	t.Parallel()

	sig := oauthSignature(
		"post",
		"https://svcs.sandbox.paypal.com/Permissions/GetBasicPersonalData",
		"api_user.example.com",
		"s3cr3t pass",
		"AAA token",
		"tok~secret/+",
		time.Unix(1700000000, 0),
	)

	assert.Equal(t, "roU564wZSdjo7ZzsVUj6n1pS2Vk=", sig)
}

func TestOAuthSignature_DependsOnInputs(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0)
	base := oauthSignature("POST", "https://api.example.com/a", "user", "pass", "tok", "sec", ts)

	assert.Equal(t, base, oauthSignature("POST", "https://api.example.com/a", "user", "pass", "tok", "sec", ts))
	assert.NotEqual(t, base, oauthSignature("POST", "https://api.example.com/b", "user", "pass", "tok", "sec", ts))
	assert.NotEqual(t, base, oauthSignature("POST", "https://api.example.com/a", "user", "pass", "tok", "other", ts))
	assert.NotEqual(t, base, oauthSignature("POST", "https://api.example.com/a", "user", "pass", "tok", "sec", ts.Add(time.Second)))
}

func TestOAuthEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "abc-._~XYZ019", want: "abc-._~XYZ019"},
		{in: "a b", want: "a%20b"},
		{in: "a+b", want: "a%2Bb"},
		{in: "a/b?c=d&e", want: "a%2Fb%3Fc%3Dd%26e"},
		{in: "*", want: "%2A"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, oauthEscape(tt.in))
		})
	}
}
