package handler

import (
	"context"
	"log/slog"
	"net/http"
)

const (
	ParamUserID = "userId"
	ParamAppID  = "appId"
)

const (
	userInfoBody    = "123"
	appInfoBody     = "123456"
	userAppInfoBody = "abc"
)

// InfoLogger is the logging capability InfoHandler needs. *slog.Logger
// satisfies it.
type InfoLogger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
}

// InfoHandler serves the user and app info endpoints.
type InfoHandler struct {
	logger InfoLogger
}

func NewInfoHandler(logger InfoLogger) *InfoHandler {
	return &InfoHandler{logger: logger}
}

// Routes returns the info endpoints relative to the base path.
func (h *InfoHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/user", Params: []string{ParamUserID}, Handle: h.GetUserInfo},
		{Method: http.MethodGet, Path: "/app", Params: []string{ParamAppID}, Handle: h.GetAppInfo},
		{Method: http.MethodGet, Path: "/user/app", Params: []string{ParamAppID, ParamUserID}, Handle: h.GetUserAppInfo},
	}
}

func (h *InfoHandler) GetUserInfo(w http.ResponseWriter, r *http.Request, params Params) {
	h.logParam(r.Context(), ParamUserID, params[ParamUserID])
	writeText(w, userInfoBody)
}

func (h *InfoHandler) GetAppInfo(w http.ResponseWriter, r *http.Request, params Params) {
	h.logParam(r.Context(), ParamAppID, params[ParamAppID])
	writeText(w, appInfoBody)
}

// GetUserAppInfo logs appId before userId.
func (h *InfoHandler) GetUserAppInfo(w http.ResponseWriter, r *http.Request, params Params) {
	h.logParam(r.Context(), ParamAppID, params[ParamAppID])
	h.logParam(r.Context(), ParamUserID, params[ParamUserID])
	writeText(w, userAppInfoBody)
}

func (h *InfoHandler) logParam(ctx context.Context, name, value string) {
	h.logger.InfoContext(ctx, "Received "+name, slog.String(name, value))
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
