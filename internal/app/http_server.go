package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"toggl-connector/internal/errs"
)

// HTTPServer returns a configured http.Server exposing the trigger
// endpoints. Call ListenAndServe on the returned server in a goroutine
// and Shutdown it on exit.
func (a *App) HTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /push?all=true runs a full push instead of an incremental one.
	mux.HandleFunc("/push", func(w http.ResponseWriter, r *http.Request) {
		syncAll := r.URL.Query().Get("all") == "true"
		err := a.Push(r.Context(), syncAll)
		writeResult(w, map[string]any{"status": "ok", "all": syncAll}, err)
	})

	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		err := a.Archive(r.Context())
		writeResult(w, map[string]any{"status": "ok"}, err)
	})

	// /pull?user=&from=YYYY-MM-DD&to=YYYY-MM-DD&update=true
	// from/to default to today, matching the import form defaults.
	mux.HandleFunc("/pull", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		userID, err := strconv.ParseUint(q.Get("user"), 10, 32)
		if err != nil {
			http.Error(w, "user query parameter is required", http.StatusBadRequest)
			return
		}
		today := time.Now().UTC().Format("2006-01-02")
		from := q.Get("from")
		if from == "" {
			from = today
		}
		to := q.Get("to")
		if to == "" {
			to = today
		}
		update := q.Get("update") == "true"

		lines, err := a.Pull(r.Context(), uint(userID), from, to, update)
		writeResult(w, map[string]any{
			"status": "ok",
			"from":   from,
			"to":     to,
			"lines":  lines,
		}, err)
	})

	srv := &http.Server{Addr: addr, Handler: loggingMiddleware(a.log, mux)}
	a.log.Info("http trigger server configured", slog.String("addr", addr))
	return srv
}

func writeResult(w http.ResponseWriter, ok map[string]any, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		status := http.StatusInternalServerError
		switch errs.KindOf(err) {
		case errs.KindConfiguration, errs.KindNoEmployeeLinked,
			errs.KindAmbiguousEmployeeLink, errs.KindUnknownRemoteUser:
			status = http.StatusUnprocessableEntity
		case errs.KindRemoteAPI, errs.KindTransport, errs.KindDecode:
			status = http.StatusBadGateway
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "error",
			"kind":   string(errs.KindOf(err)),
			"error":  err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ok)
}

// loggingMiddleware provides basic request logging.
func loggingMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Duration("dur", time.Since(start)),
		)
	})
}
