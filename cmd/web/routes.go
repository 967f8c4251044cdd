package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/httputil"
	"github.com/AdamBeresnev/bracket-engine/internal/live"
	"github.com/AdamBeresnev/bracket-engine/internal/middleware"
	"github.com/AdamBeresnev/bracket-engine/internal/notify"
	"github.com/AdamBeresnev/bracket-engine/internal/service"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

type createTournamentRequest struct {
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	MaxParticipants int                   `json:"max_participants"`
	Phases          []bracket.BracketType `json:"phases"`
}

type teamRequest struct {
	TeamID uuid.UUID `json:"team_id"`
}

type refereeRequest struct {
	RefereeID uuid.UUID `json:"referee_id"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type generateRequest struct {
	TeamCount *int `json:"team_count"`
	Seed      bool `json:"seed"`
}

type bracketUpdateRequest struct {
	PhaseIndex int       `json:"phase_index"`
	Stage      string    `json:"stage"`
	Slot       int       `json:"slot"`
	TeamID     uuid.UUID `json:"team_id"`
	Position   string    `json:"position"`
}

type scoreRequest struct {
	ScoreA *int `json:"score_a"`
	ScoreB *int `json:"score_b"`
}

type scheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func newRouter(st store.Store, notifier notify.Notifier, hub *live.Hub, allowedOrigins []string) http.Handler {
	tournamentService := service.NewTournamentService(st, notifier)
	bracketService := service.NewBracketService(st, notifier)
	matchService := service.NewMatchService(st, notifier)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.UserIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.LoadUserID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/ws/tournaments/{tournamentID}", hub.ServeWs)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUserID)

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var req createTournamentRequest
			if err := httputil.DecodeJSON(r, &req); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			id, err := tournamentService.CreateTournament(r.Context(), service.CreateTournamentInput{
				Name:            req.Name,
				Description:     req.Description,
				MaxParticipants: req.MaxParticipants,
				Phases:          req.Phases,
			})
			if err != nil {
				httputil.Error(w, "Failed to create tournament", err)
				return
			}
			w.Header().Set("Location", tournamentPath(id))
			httputil.JSON(w, http.StatusCreated, map[string]uuid.UUID{"id": id})
		})

		r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := tournamentService.GetTournamentsForUser(r.Context())
			if err != nil {
				httputil.Error(w, "Failed to get tournaments", err)
				return
			}
			if tournaments == nil {
				tournaments = []bracket.Tournament{}
			}
			httputil.JSON(w, http.StatusOK, tournaments)
		})

		r.Route("/tournaments/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				data, err := tournamentService.GetTournamentData(r.Context(), id)
				if err != nil {
					httputil.Error(w, "Failed to get tournament", err)
					return
				}
				httputil.JSON(w, http.StatusOK, data)
			})

			r.Post("/teams", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req teamRequest
				if err := httputil.DecodeJSON(r, &req); err != nil || req.TeamID == uuid.Nil {
					httputil.BadRequest(w, "Invalid team ID", err)
					return
				}
				if err := tournamentService.RegisterTeam(r.Context(), id, req.TeamID); err != nil {
					httputil.Error(w, "Failed to register team", err)
					return
				}
				w.WriteHeader(http.StatusAccepted)
			})

			r.Post("/teams/{teamID}/approve", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				teamID, ok := pathID(w, r, "teamID")
				if !ok {
					return
				}
				if err := tournamentService.ApproveTeam(r.Context(), id, teamID); err != nil {
					httputil.Error(w, "Failed to approve team", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Delete("/teams/{teamID}", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				teamID, ok := pathID(w, r, "teamID")
				if !ok {
					return
				}
				if err := tournamentService.RejectTeam(r.Context(), id, teamID); err != nil {
					httputil.Error(w, "Failed to reject team", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Post("/referees", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req refereeRequest
				if err := httputil.DecodeJSON(r, &req); err != nil || req.RefereeID == uuid.Nil {
					httputil.BadRequest(w, "Invalid referee ID", err)
					return
				}
				if err := tournamentService.AddReferee(r.Context(), id, req.RefereeID); err != nil {
					httputil.Error(w, "Failed to add referee", err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})

			r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req statusRequest
				if err := httputil.DecodeJSON(r, &req); err != nil {
					httputil.BadRequest(w, "Invalid request body", err)
					return
				}
				next, err := bracket.ParseTournamentStatus(req.Status)
				if err != nil {
					httputil.Error(w, "Invalid status", err)
					return
				}
				tournament, err := tournamentService.TransitionStatus(r.Context(), id, next)
				if err != nil {
					httputil.Error(w, "Failed to change tournament status", err)
					return
				}
				httputil.JSON(w, http.StatusOK, tournament)
			})

			r.Route("/phases/{index}", func(r chi.Router) {
				r.Post("/status", func(w http.ResponseWriter, r *http.Request) {
					id, ok := pathID(w, r, "id")
					if !ok {
						return
					}
					index, ok := pathIndex(w, r)
					if !ok {
						return
					}
					var req statusRequest
					if err := httputil.DecodeJSON(r, &req); err != nil {
						httputil.BadRequest(w, "Invalid request body", err)
						return
					}
					next, err := bracket.ParsePhaseStatus(req.Status)
					if err != nil {
						httputil.Error(w, "Invalid status", err)
						return
					}
					phase, err := tournamentService.TransitionPhase(r.Context(), id, index, next)
					if err != nil {
						httputil.Error(w, "Failed to change phase status", err)
						return
					}
					httputil.JSON(w, http.StatusOK, phase)
				})

				r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
					id, ok := pathID(w, r, "id")
					if !ok {
						return
					}
					index, ok := pathIndex(w, r)
					if !ok {
						return
					}
					var req generateRequest
					if r.ContentLength != 0 {
						if err := httputil.DecodeJSON(r, &req); err != nil {
							httputil.BadRequest(w, "Invalid request body", err)
							return
						}
					}
					matches, err := bracketService.GenerateSkeleton(r.Context(), id, index, service.GenerateOptions{
						TeamCount: req.TeamCount,
						Seed:      req.Seed,
					})
					if err != nil {
						httputil.Error(w, "Failed to generate bracket", err)
						return
					}
					httputil.JSON(w, http.StatusCreated, matches)
				})
			})

			r.Put("/bracket", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req bracketUpdateRequest
				if err := httputil.DecodeJSON(r, &req); err != nil {
					httputil.BadRequest(w, "Invalid request body", err)
					return
				}
				match, err := bracketService.UpdateBracket(r.Context(), id, bracket.BracketUpdate{
					PhaseIndex: req.PhaseIndex,
					Stage:      bracket.Stage(req.Stage),
					Slot:       req.Slot,
					TeamID:     req.TeamID,
					Position:   bracket.Position(req.Position),
				})
				if err != nil {
					httputil.Error(w, "Failed to update bracket", err)
					return
				}
				httputil.JSON(w, http.StatusOK, match)
			})
		})

		r.Route("/matches/{id}", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				match, err := matchService.GetMatch(r.Context(), id)
				if err != nil {
					httputil.Error(w, "Failed to get match", err)
					return
				}
				httputil.JSON(w, http.StatusOK, match)
			})

			r.Post("/score", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req scoreRequest
				if err := httputil.DecodeJSON(r, &req); err != nil || req.ScoreA == nil || req.ScoreB == nil {
					httputil.BadRequest(w, "Both scores are required", err)
					return
				}
				result, err := matchService.ReportScore(r.Context(), id, *req.ScoreA, *req.ScoreB)
				if err != nil {
					httputil.Error(w, "Failed to report score", err)
					return
				}
				httputil.JSON(w, http.StatusOK, result)
			})

			r.Post("/advance", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				result, err := matchService.AdvanceMatch(r.Context(), id)
				if err != nil {
					httputil.Error(w, "Failed to advance match", err)
					return
				}
				httputil.JSON(w, http.StatusOK, result)
			})

			r.Post("/schedule", func(w http.ResponseWriter, r *http.Request) {
				id, ok := pathID(w, r, "id")
				if !ok {
					return
				}
				var req scheduleRequest
				if err := httputil.DecodeJSON(r, &req); err != nil || req.ScheduledAt.IsZero() {
					httputil.BadRequest(w, "Invalid schedule time", err)
					return
				}
				match, err := matchService.ScheduleMatch(r.Context(), id, req.ScheduledAt)
				if err != nil {
					httputil.Error(w, "Failed to schedule match", err)
					return
				}
				httputil.JSON(w, http.StatusOK, match)
			})
		})
	})

	return r
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+param, err)
		return uuid.Nil, false
	}
	return id, true
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httputil.BadRequest(w, "Invalid phase index", err)
		return 0, false
	}
	return index, true
}

func tournamentPath(id uuid.UUID) string {
	return "/api/tournaments/" + id.String()
}
