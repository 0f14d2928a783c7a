// Package citation builds viewer URLs that point at a cited passage and signs
// the short-lived read tokens embedded in them.
package citation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Highlight sources tell the viewer which text the highlight was taken from.
const (
	SourceSection = "section"
	SourceHeader  = "header"
	SourceContent = "content"
)

const tokenAudience = "docsift-viewer"

// Target is everything the viewer needs to open and highlight a passage.
type Target struct {
	DocumentID      string
	DocumentName    string
	Page            int
	SectionNumber   string
	Highlight       string
	HighlightSource string
}

// URLBuilder resolves a citation target into a URL.
type URLBuilder interface {
	BuildURL(ctx context.Context, t Target) (string, error)
}

// ViewerURLBuilder produces links of the form
// <base>?document=..&doc_id=..&page=..&section=..&highlight=..&source=..&token=..
type ViewerURLBuilder struct {
	baseURL string
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewViewerURLBuilder(baseURL string, secret []byte, ttl time.Duration) *ViewerURLBuilder {
	return &ViewerURLBuilder{baseURL: baseURL, secret: secret, ttl: ttl, now: time.Now}
}

func (b *ViewerURLBuilder) BuildURL(_ context.Context, t Target) (string, error) {
	if t.DocumentID == "" {
		return "", errors.New("citation: missing document id")
	}
	u, err := url.Parse(b.baseURL)
	if err != nil {
		return "", fmt.Errorf("citation: parse base url: %w", err)
	}

	token, err := SignToken(b.secret, t.DocumentID, b.ttl, b.now())
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("document", t.DocumentName)
	q.Set("doc_id", t.DocumentID)
	if t.Page > 0 {
		q.Set("page", strconv.Itoa(t.Page))
	}
	if t.SectionNumber != "" {
		q.Set("section", t.SectionNumber)
	}
	if t.Highlight != "" {
		q.Set("highlight", t.Highlight)
		q.Set("source", t.HighlightSource)
	}
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ViewerClaims authorize reading one document's blob.
type ViewerClaims struct {
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token scoped to documentID.
func SignToken(secret []byte, documentID string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("citation: empty token secret")
	}
	claims := ViewerClaims{jwt.RegisteredClaims{
		Subject:   documentID,
		Audience:  jwt.ClaimStrings{tokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("citation: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a viewer token and returns the document id it grants.
func ParseToken(secret []byte, token string) (string, error) {
	claims := &ViewerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", errors.New("citation: invalid token claims")
	}
	return claims.Subject, nil
}
