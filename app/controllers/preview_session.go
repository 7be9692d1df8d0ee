package controllers

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	previewSessionName = "spacetraveling-preview"
	previewRefKey      = "ref"
	previewMaxAge      = 30 * 60
)

// PreviewSession keeps the preview ref of an editor in a signed cookie.
type PreviewSession struct {
	store sessions.Store
}

// NewCookieStore creates the signed cookie store for preview sessions.
func NewCookieStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   previewMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func NewPreviewSession(store sessions.Store) *PreviewSession {
	return &PreviewSession{store: store}
}

// Ref returns the preview ref of the request, or "" outside preview mode.
func (p *PreviewSession) Ref(r *http.Request) string {
	session, err := p.store.Get(r, previewSessionName)
	if err != nil || session == nil || session.IsNew {
		return ""
	}
	ref, _ := session.Values[previewRefKey].(string)
	return ref
}

// Start puts the response into preview mode for ref.
func (p *PreviewSession) Start(w http.ResponseWriter, r *http.Request, ref string) error {
	session := p.session(r)
	session.Values[previewRefKey] = ref
	session.Options.MaxAge = previewMaxAge
	return session.Save(r, w)
}

// Clear expires the preview cookie.
func (p *PreviewSession) Clear(w http.ResponseWriter, r *http.Request) error {
	session := p.session(r)
	delete(session.Values, previewRefKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// session returns the request's session, starting a fresh one when the
// cookie is missing or cannot be decoded.
func (p *PreviewSession) session(r *http.Request) *sessions.Session {
	session, err := p.store.Get(r, previewSessionName)
	if err != nil || session == nil {
		session = sessions.NewSession(p.store, previewSessionName)
		session.Options = &sessions.Options{Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode}
	}
	if session.Options == nil {
		session.Options = &sessions.Options{Path: "/"}
	}
	return session
}
