package server

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"map-chat/internal/auth"
	"map-chat/internal/chat"
)

// Authenticator is the auth provider used by the handlers
type Authenticator interface {
	SignUp(ctx context.Context, name, email, password string) (auth.Principal, string, error)
	SignIn(ctx context.Context, email, password string) (auth.Principal, string, error)
	SignOut(ctx context.Context, userID string) error
	Verify(ctx context.Context, token string) (auth.Principal, error)
}

// Profiles is the directory service with write access for the profile panel
type Profiles interface {
	chat.Directory
	SetProfileImage(ctx context.Context, userID, imageURL string) error
}

type parsers struct {
	signUpPool          fastjson.ParserPool
	signInPool          fastjson.ParserPool
	addMessagePool      fastjson.ParserPool
	profileImagePool    fastjson.ParserPool
	setProfileImagePool fastjson.ParserPool
}

type handler struct {
	logger      *zap.SugaredLogger
	auth        Authenticator
	groups      chat.GroupStore
	profiles    Profiles
	prefs       chat.Prefs
	mapConfig   MapConfig
	placeholder string
	parsers     parsers
	upgrader    websocket.Upgrader
}

type sessionResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Token       string `json:"token"`
}

type profileImageResponse struct {
	ImageURL *string `json:"imageUrl"`
}

type addMessageResponse struct {
	Group string `json:"group"`
}

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/gif"}

// stringField retrieves a required string field, writing the error response when it is missing
func stringField(w http.ResponseWriter, v *fastjson.Value, name string) (string, bool) {
	if !v.Exists(name) {
		http.Error(w, "Missing Field \""+name+"\"", http.StatusBadRequest)
		return "", false
	}

	fv := v.Get(name)
	if fv.Type() != fastjson.TypeString {
		http.Error(w, "Field \""+name+"\" must be a string", http.StatusBadRequest)
		return "", false
	}

	return string(fv.GetStringBytes()), true
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		h.logger.Errorf("writing marshaled data to ResponseWriter: %v", err)
	}
}

func (h *handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error(err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// signUp handles HTTP requests on "/auth/signup" endpoint
func (h *handler) signUp(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.signUpPool.Get()
	defer h.parsers.signUpPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	name, ok := stringField(w, v, "name")
	if !ok {
		return
	}
	email, ok := stringField(w, v, "email")
	if !ok {
		return
	}
	password, ok := stringField(w, v, "password")
	if !ok {
		return
	}

	p, token, err := h.auth.SignUp(r.Context(), name, email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, auth.ErrEmailExists):
			http.Error(w, "Email already registered", http.StatusBadRequest)
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, sessionResponse{UID: p.UID, DisplayName: p.DisplayName, Email: p.Email, Token: token})
}

// signIn handles HTTP requests on "/auth/signin" endpoint
func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.signInPool.Get()
	defer h.parsers.signInPool.Put(parser)
	v, _ := parser.ParseBytes(body)

	email, ok := stringField(w, v, "email")
	if !ok {
		return
	}
	password, ok := stringField(w, v, "password")
	if !ok {
		return
	}

	p, token, err := h.auth.SignIn(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, auth.ErrInvalidCredentials):
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, sessionResponse{UID: p.UID, DisplayName: p.DisplayName, Email: p.Email, Token: token})
}

// signOut handles HTTP requests on "/auth/signout" endpoint
func (h *handler) signOut(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())

	if err := h.auth.SignOut(r.Context(), p.UID); err != nil {
		h.internalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// groupMarkers handles HTTP requests on "/groups/get" endpoint
func (h *handler) groupMarkers(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groups.Groups(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, chat.LoadMarkers(groups).Markers())
}

// addMessage handles HTTP requests on "/messages/add" endpoint
func (h *handler) addMessage(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.addMessagePool.Get()
	defer h.parsers.addMessagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	groupID, ok := stringField(w, v, "group")
	if !ok {
		return
	}
	if groupID == "" {
		http.Error(w, "Field \"group\" must have non-zero length", http.StatusBadRequest)
		return
	}

	text, ok := stringField(w, v, "text")
	if !ok {
		return
	}

	err := chat.AppendMessage(r.Context(), h.groups, groupID, chat.Message{Text: text, UserID: p.UID})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, chat.ErrGroupNotFound):
			http.Error(w, "Group with provided id does not exist", http.StatusNotFound)
		default:
			h.internalError(w, err)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, addMessageResponse{Group: groupID})
}

// profileImage handles HTTP requests on "/profile/image/get" endpoint
func (h *handler) profileImage(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.profileImagePool.Get()
	defer h.parsers.profileImagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	userID := p.UID
	if v.Exists("user") {
		var ok bool
		if userID, ok = stringField(w, v, "user"); !ok {
			return
		}
	}

	url, ok, err := h.profiles.ProfileImage(r.Context(), userID)
	if err != nil {
		h.internalError(w, err)
		return
	}

	resp := profileImageResponse{}
	if ok {
		resp.ImageURL = &url
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// setProfileImage handles HTTP requests on "/profile/image/set" endpoint
func (h *handler) setProfileImage(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	body, _ := io.ReadAll(r.Body)

	parser := h.parsers.setProfileImagePool.Get()
	defer h.parsers.setProfileImagePool.Put(parser)
	v, _ := parser.ParseBytes(body)

	imageURL, ok := stringField(w, v, "imageUrl")
	if !ok {
		return
	}

	if err := checkImageDataURL(imageURL); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.profiles.SetProfileImage(r.Context(), p.UID, imageURL); err != nil {
		h.internalError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// mapView handles HTTP requests on "/map/config" endpoint
func (h *handler) mapView(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.Header().Set("Allow", "GET")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, h.mapConfig)
}

// checkImageDataURL accepts base64 data URLs holding a PNG, JPEG or GIF image
func checkImageDataURL(s string) error {
	if !strings.HasPrefix(s, "data:") {
		return errors.New("Field \"imageUrl\" must be a data URL")
	}

	meta, data, found := strings.Cut(s[len("data:"):], ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return errors.New("Field \"imageUrl\" must be a base64 data URL")
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return errors.New("Field \"imageUrl\" holds malformed base64")
	}

	mt := mimetype.Detect(raw).String()
	if !lo.Contains(allowedImageTypes, mt) {
		return errors.New("Profile image must be PNG, JPEG or GIF, got " + mt)
	}

	return nil
}
