package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"universe/api/internal/auth"
	"universe/api/internal/autosave"
	"universe/api/internal/content"
	"universe/api/internal/draft"
	"universe/api/internal/editmode"
	"universe/api/internal/editor"
	"universe/api/internal/export"
	"universe/api/internal/prefs"
	"universe/api/internal/rbac"
	"universe/api/internal/references"
	"universe/api/internal/search"
	"universe/api/internal/store"
)

var validate = validator.New()

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigin string, logger zerolog.Logger) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: logger.With().Str("component", "http").Logger()}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID, "role": session.Role})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		var body struct {
			Name string `json:"name" validate:"required,max=120"`
			Role string `json:"role" validate:"omitempty,oneof=viewer editor admin"`
		}
		if !decodeAndValidate(w, r, &body) {
			return
		}
		session, err := s.service.Login(r.Context(), body.Name, body.Role)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":     session.Token,
			"userName":  session.UserName,
			"userId":    session.UserID,
			"role":      session.Role,
			"expiresAt": session.ExpiresAt.Unix(),
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	switch parts[1] {
	case "search":
		if len(parts) == 2 && r.Method == http.MethodGet {
			s.handleSearch(w, r, session)
			return
		}
	case "drafts":
		s.handleDrafts(w, r, session, parts)
		return
	case "documents", "entities", "studies":
		s.handleQuery(w, r, session, parts)
		return
	case "editor":
		s.handleEditor(w, r, session, parts)
		return
	case "state":
		s.handleState(w, r, session, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	if !s.service.Can(session.Role, rbac.ActionRead) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	query := r.URL.Query()
	filterType := search.ResultType(strings.TrimSpace(query.Get("type")))
	if filterType != "" && !filterType.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be one of draft, document, entity, study", nil)
		return
	}
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(r.Context(), search.Query{
		Text:             strings.TrimSpace(query.Get("q")),
		FilterType:       filterType,
		FilterDocumentID: strings.TrimSpace(query.Get("documentId")),
		Limit:            limit,
		Offset:           offset,
	}))
}

func (s *HTTPServer) handleDrafts(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 2 && r.Method == http.MethodPost {
		if !s.service.Can(session.Role, rbac.ActionEdit) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var body draft.CreateRequest
		if !decodeAndValidate(w, r, &body) {
			return
		}
		created, err := s.service.CreateDocumentDraft(withActor(r.Context(), session.UserName), body)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
		return
	}

	if len(parts) < 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	draftID := parts[2]

	if len(parts) == 3 && r.Method == http.MethodGet {
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		item, err := s.service.GetDraft(r.Context(), draftID)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	if len(parts) == 3 && r.Method == http.MethodPut {
		if !s.service.Can(session.Role, rbac.ActionEdit) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var body draft.UpdateRequest
		if !decodeAndValidate(w, r, &body) {
			return
		}
		ctx := withActor(r.Context(), session.UserName)
		if err := s.service.UpdateDraft(ctx, draftID, body.Content, body.UpdatedAt); err != nil {
			s.writeMapped(w, err)
			return
		}
		item, err := s.service.GetDraft(ctx, draftID)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	if len(parts) == 4 && parts[3] == "history" && r.Method == http.MethodGet {
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		limit, ok := queryInt(w, r, "limit", 50)
		if !ok {
			return
		}
		items, err := s.service.DraftHistory(r.Context(), draftID, limit)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"draftId": draftID, "revisions": items})
		return
	}

	if len(parts) == 5 && parts[3] == "revisions" && r.Method == http.MethodGet {
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		item, err := s.service.DraftRevision(r.Context(), draftID, parts[4])
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	if len(parts) == 4 && parts[3] == "export" && r.Method == http.MethodGet {
		format, err := export.ParseFormat(strings.TrimSpace(r.URL.Query().Get("format")))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html, pdf or docx", nil)
			return
		}
		revision := strings.TrimSpace(r.URL.Query().Get("revision"))
		result, err := s.service.ExportDraft(r.Context(), session, draftID, revision, format)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+result.Filename+"\"")
		w.Header().Set("Content-Type", result.MimeType)
		if result.ArchiveURL != "" {
			w.Header().Set("X-Archive-URL", result.ArchiveURL)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if r.Method != http.MethodGet || len(parts) > 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if !s.service.Can(session.Role, rbac.ActionRead) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}

	if len(parts) == 3 {
		var (
			item any
			err  error
		)
		switch parts[1] {
		case "documents":
			item, err = s.service.GetDocument(r.Context(), parts[2])
		case "entities":
			item, err = s.service.GetEntity(r.Context(), parts[2])
		default:
			item, err = s.service.GetStudy(r.Context(), parts[2])
		}
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
		return
	}

	pageNum, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", store.DefaultPageLimit)
	if !ok {
		return
	}
	page := store.Page{Page: pageNum, Limit: limit}

	var (
		payload any
		err     error
	)
	switch parts[1] {
	case "documents":
		payload, err = s.service.ListDocuments(r.Context(), page)
	case "entities":
		payload, err = s.service.ListEntities(r.Context(), page)
	default:
		payload, err = s.service.ListStudies(r.Context(), page)
	}
	if err != nil {
		s.writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleEditor(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 3 && parts[2] == "edit-mode" && r.Method == http.MethodGet {
		state, err := s.service.EditModeState()
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	if len(parts) < 3 || parts[2] != "sessions" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if len(parts) == 3 && r.Method == http.MethodPost {
		if !s.service.Can(session.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		var body OpenSessionInput
		if !decodeAndValidate(w, r, &body) {
			return
		}
		view, err := s.service.OpenEditorSession(r.Context(), session, body)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
		return
	}

	if len(parts) == 3 && r.Method == http.MethodGet {
		views, err := s.service.EditorSessions()
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
		return
	}

	if len(parts) < 4 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	sessionID := parts[3]

	if len(parts) == 4 && r.Method == http.MethodGet {
		view, err := s.service.EditorSession(sessionID)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if len(parts) == 4 && r.Method == http.MethodDelete {
		if err := s.service.CloseEditorSession(session, sessionID); err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 5 && parts[4] == "content" && r.Method == http.MethodPut {
		var body struct {
			Content json.RawMessage `json:"content" validate:"required"`
		}
		if !decodeAndValidate(w, r, &body) {
			return
		}
		view, err := s.service.EditSessionContent(session, sessionID, body.Content)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if len(parts) == 5 && parts[4] == "edit-mode" && r.Method == http.MethodPost {
		var body struct {
			Editing *bool `json:"editing" validate:"required"`
		}
		if !decodeAndValidate(w, r, &body) {
			return
		}
		view, err := s.service.SetEditMode(session, sessionID, *body.Editing)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	if len(parts) == 5 && parts[4] == "save" && r.Method == http.MethodPost {
		result, err := s.service.SaveEditorSession(r.Context(), session, sessionID)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(parts) == 5 && parts[4] == "references" && r.Method == http.MethodGet {
		kinds, ok := referenceKinds(w, r)
		if !ok {
			return
		}
		set, err := s.service.EditorReferences(r.Context(), sessionID, kinds)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleState(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 2 && r.Method == http.MethodGet {
		values, err := s.service.ClientState(r.Context(), session)
		if err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"state": values, "keys": prefs.Keys()})
		return
	}

	if len(parts) != 3 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	key := parts[2]

	if r.Method == http.MethodPut {
		var body struct {
			Value json.RawMessage `json:"value" validate:"required"`
		}
		if !decodeAndValidate(w, r, &body) {
			return
		}
		if err := s.service.SetClientState(r.Context(), session, key, body.Value); err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})
		return
	}

	if r.Method == http.MethodDelete {
		if err := s.service.ClearClientState(r.Context(), session, key); err != nil {
			s.writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

// writeMapped writes err as a JSON error and logs anything unmapped.
func (s *HTTPServer) writeMapped(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("code", code).Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", writer.status).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Archive-URL, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// decodeAndValidate decodes the body into target and checks its validate
// tags. It writes the error response itself and reports whether to go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	if err := validate.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return false
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[jsonFieldName(fe)] = fe.Tag()
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body is invalid", map[string]any{"fields": fields})
		return false
	}
	return true
}

// jsonFieldName lower-cases the first letter of the struct field, which
// matches the camelCase JSON names used by request bodies.
func jsonFieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return name
	}
	if strings.HasSuffix(name, "ID") {
		name = strings.TrimSuffix(name, "ID") + "Id"
	}
	return strings.ToLower(name[:1]) + name[1:]
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", key+" must be an integer", nil)
		return 0, false
	}
	return parsed, true
}

// referenceKinds reads ?kind=documents&kind=comments; none means all groups.
func referenceKinds(w http.ResponseWriter, r *http.Request) ([]references.Kind, bool) {
	values := r.URL.Query()["kind"]
	kinds := make([]references.Kind, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			kind := references.Kind(strings.TrimSpace(part))
			if kind == "" {
				continue
			}
			if !kind.Valid() {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown reference kind", map[string]any{"kind": string(kind)})
				return nil, false
			}
			kinds = append(kinds, kind)
		}
	}
	return kinds, true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var saveErr *autosave.SaveError
	if errors.As(err, &saveErr) {
		return http.StatusBadGateway, "SAVE_FAILED", "Draft could not be saved", map[string]any{"op": saveErr.Op, "draftId": saveErr.DraftID}
	}
	var apiErr *draft.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, "SAVE_FAILED", "Draft service rejected the request", map[string]any{"status": apiErr.StatusCode}
	}
	switch {
	case errors.Is(err, content.ErrReadOnly):
		return http.StatusConflict, "CONTENT_LOCKED", "Content is read-only outside edit mode", nil
	case errors.Is(err, content.ErrMalformed), errors.Is(err, content.ErrNotDocument):
		return http.StatusUnprocessableEntity, "INVALID_CONTENT", "content must be a document", nil
	case errors.Is(err, editmode.ErrInvalidDocumentID):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "documentId is required", nil
	case errors.Is(err, prefs.ErrNotPersisted):
		return http.StatusUnprocessableEntity, "NOT_PERSISTED", "Only auth and language are persisted", map[string]any{"keys": prefs.Keys()}
	case errors.Is(err, prefs.ErrInvalidValue):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "value must be valid JSON", nil
	case errors.Is(err, editor.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "Editor session not found", nil
	case errors.Is(err, editor.ErrSessionClosed):
		return http.StatusConflict, "SESSION_CLOSED", "Editor session is closed", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html, pdf or docx", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export renderer is not available", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
