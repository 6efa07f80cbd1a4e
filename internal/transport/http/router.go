package http

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/domain"
)

// Handler wires the application services into HTTP routes.
type Handler struct {
	auth     *app.AuthService
	quizzes  *app.QuizService
	results  *app.ResultService
	attempts *app.AttemptService
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewHandler(auth *app.AuthService, quizzes *app.QuizService, results *app.ResultService, attempts *app.AttemptService) *Handler {
	return &Handler{
		auth:     auth,
		quizzes:  quizzes,
		results:  results,
		attempts: attempts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Routes registers every endpoint on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)

	mux.HandleFunc("GET /quizzes", h.handleListQuizzes)
	mux.HandleFunc("POST /quizzes", h.requireRole(domain.RoleAdmin, h.handleCreateQuiz))
	mux.HandleFunc("DELETE /quizzes/{id}", h.requireRole(domain.RoleAdmin, h.handleDeleteQuiz))

	mux.HandleFunc("GET /results", h.requireAuth(h.handleListResults))
	mux.HandleFunc("POST /results", h.requireAuth(h.handleRecordResult))

	mux.HandleFunc("GET /attempts/ws", h.serveAttemptWS)
}
