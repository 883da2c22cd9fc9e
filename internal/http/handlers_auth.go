package http

import (
	"net/http"

	"gestornet/internal/core"
	"gestornet/internal/services"
)

// managerView is a manager as the API shows it, without the password.
type managerView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func viewManager(m core.Manager) managerView {
	return managerView{ID: m.ID, Name: m.Name}
}

type sessionResponse struct {
	Manager managerView `json:"manager"`
	Token   string      `json:"token"`
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type registerManagerRequest struct {
	BossPassword string `json:"bossPassword"`
	Name         string `json:"name"`
	Password     string `json:"password"`
}

type bossPasswordRequest struct {
	BossPassword string `json:"bossPassword"`
}

func (s *Server) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"setupComplete": s.deps.Auth.IsSetupComplete()})
}

// handleSetup runs first-run setup and logs the new manager in.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req services.SetupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	sess := services.NewSession()
	m, err := s.deps.Auth.Setup(r.Context(), sess, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusCreated, sessionResponse{Manager: viewManager(m), Token: sess.Token()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Auth.IsSetupComplete() {
		handleServiceError(w, r, core.ErrSetupRequired)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	sess := services.NewSession()
	if err := s.deps.Auth.Login(r.Context(), sess, req.Name, req.Password); err != nil {
		handleServiceError(w, r, err)
		return
	}
	m, _ := sess.Manager()
	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Manager: viewManager(m), Token: sess.Token()})
}

// handleLogout always succeeds; tokens are stateless so the cookie is what
// gets dropped.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.restoreSession(r); err == nil {
		s.deps.Auth.Logout(r.Context(), sess)
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleSession tells the UI which screen to open: setup, login or the app.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		SetupComplete bool         `json:"setupComplete"`
		LoggedIn      bool         `json:"loggedIn"`
		Manager       *managerView `json:"manager,omitempty"`
	}{SetupComplete: s.deps.Auth.IsSetupComplete()}

	if sess, err := s.restoreSession(r); err == nil {
		if m, ok := sess.Manager(); ok {
			v := viewManager(m)
			resp.LoggedIn = true
			resp.Manager = &v
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleChangePassword changes the logged-in manager's password and
// replaces the session cookie, since older tokens stop validating.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.deps.Auth.ChangeManagerPassword(r.Context(), sess, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	m, _ := sess.Manager()
	s.setSessionCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionResponse{Manager: viewManager(m), Token: sess.Token()})
}

func (s *Server) handleChangeBossPassword(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	var req passwordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.deps.Auth.ChangeBossPassword(r.Context(), req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListManagers(w http.ResponseWriter, r *http.Request, _ *services.Session) {
	managers := s.deps.Auth.Managers()
	out := make([]managerView, 0, len(managers))
	for _, m := range managers {
		out = append(out, viewManager(m))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRegisterManager is open to anonymous callers; the boss password
// gates it.
func (s *Server) handleRegisterManager(w http.ResponseWriter, r *http.Request) {
	var req registerManagerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	m, err := s.deps.Auth.RegisterManagerWithBoss(r.Context(), req.BossPassword, sanitizeInput(req.Name), req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewManager(m))
}

func (s *Server) handleDeleteManager(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req bossPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if err := s.deps.Auth.DeleteManager(r.Context(), sess, r.PathValue("id"), req.BossPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
