package auth

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is mandated by the OAuth 1.0 scheme PayPal uses
	"encoding/base64"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const oauthSignatureMethod = "HMAC-SHA1"

// oauthSignature signs a request with OAuth 1.0 HMAC-SHA1 and no nonce,
// the variant PayPal expects for third-party permission tokens. The
// base string is METHOD&url&params with every part percent-encoded and
// the key is consumerSecret&tokenSecret.
func oauthSignature(method, rawURL, consumerKey, consumerSecret, token, tokenSecret string, ts time.Time) string {
	params := map[string]string{
		"oauth_consumer_key":     consumerKey,
		"oauth_signature_method": oauthSignatureMethod,
		"oauth_timestamp":        strconv.FormatInt(ts.Unix(), 10),
		"oauth_token":            token,
		"oauth_version":          "1.0",
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, oauthEscape(k)+"="+oauthEscape(params[k]))
	}

	base := strings.Join([]string{
		oauthEscape(strings.ToUpper(method)),
		oauthEscape(rawURL),
		oauthEscape(strings.Join(pairs, "&")),
	}, "&")
	key := oauthEscape(consumerSecret) + "&" + oauthEscape(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// oauthEscape percent-encodes s per RFC 3986.
func oauthEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
