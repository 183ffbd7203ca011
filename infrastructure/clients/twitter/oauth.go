package twitter

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Signer produces OAuth 1.0a HMAC-SHA1 Authorization headers. Each call to
// AuthorizationHeader draws a fresh nonce and timestamp, so two requests in
// the same flow never share a signature.
type Signer struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	// Overridable for deterministic tests.
	nonce func() string
	now   func() time.Time
}

func NewSigner(consumerKey, consumerSecret, accessToken, accessTokenSecret string) *Signer {
	return &Signer{
		ConsumerKey:       consumerKey,
		ConsumerSecret:    consumerSecret,
		AccessToken:       accessToken,
		AccessTokenSecret: accessTokenSecret,
		nonce:             randomNonce,
		now:               time.Now,
	}
}

// AuthorizationHeader builds the OAuth header value for one request.
func (s *Signer) AuthorizationHeader(method, rawURL string) string {
	oauth := map[string]string{
		"oauth_consumer_key":     s.ConsumerKey,
		"oauth_nonce":            s.nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", s.now().Unix()),
		"oauth_token":            s.AccessToken,
		"oauth_version":          "1.0",
	}
	oauth["oauth_signature"] = s.sign(baseString(method, rawURL, oauth))
	return "OAuth " + headerParams(oauth)
}

// baseString canonicalizes the signing input: parameters sorted by name,
// percent-encoded key=value pairs joined by &, prefixed with the uppercase
// method and the percent-encoded URL. The platform verifies this byte for
// byte, so the encoding must not drift.
func baseString(method, rawURL string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	return strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(strings.Join(pairs, "&"))
}

func (s *Signer) sign(base string) string {
	key := percentEncode(s.ConsumerSecret) + "&" + percentEncode(s.AccessTokenSecret)
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func headerParams(oauth map[string]string) string {
	keys := make([]string, 0, len(oauth))
	for k := range oauth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, k+`="`+percentEncode(oauth[k])+`"`)
	}
	return strings.Join(values, ", ")
}

// percentEncode implements RFC 3986 encoding as OAuth 1.0a requires
// (unreserved characters A-Z a-z 0-9 - . _ ~ pass through).
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func randomNonce() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
