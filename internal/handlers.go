package internal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type APIError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e APIError) Error() string {
	return e.Message
}

func NewAPIError(message string, status int) APIError {
	return APIError{Message: message, Status: status}
}

func writeError(w http.ResponseWriter, err error, logger *Logger, r *http.Request) {
	var apiErr APIError
	if e, ok := err.(APIError); ok {
		apiErr = e
	} else {
		apiErr = NewAPIError("Internal server error", http.StatusInternalServerError)
	}

	requestID := GetRequestID(r.Context())

	logger.Error("api_error").
		Component("http").
		Operation("write_error").
		HTTP(r.Method, r.URL.Path, apiErr.Status).
		Request(r.UserAgent(), r.RemoteAddr, requestID).
		Err(err).
		ErrorCode(strconv.Itoa(apiErr.Status)).
		Log()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     apiErr.Message,
		"status":    apiErr.Status,
		"timestamp": time.Now().Unix(),
		"requestId": requestID,
	})
}

func writeJSON(w http.ResponseWriter, data interface{}, logger *Logger, r *http.Request) {
	requestID := GetRequestID(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json_encode_failed").
			Component("http").
			Operation("write_json").
			Request("", "", requestID).
			Err(err).
			Log()
	}
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func HealthHandler(logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("health_check").
			Component("health").
			Operation("check").
			Log()

		writeJSON(w, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		}, logger, r)
	})
}

type GatherPublisher interface {
	PublishGatherTask(task GatherTask) error
}

func validateGatherTask(task *GatherTask) error {
	if task.Platform == "" {
		return NewAPIError("platform is required", http.StatusBadRequest)
	}
	if task.StartTime == "" || task.EndTime == "" {
		return NewAPIError("startTime and endTime are required", http.StatusBadRequest)
	}
	if task.TargetMatches <= 0 {
		return NewAPIError("targetMatches must be positive", http.StatusBadRequest)
	}
	if _, err := RankFromTier(task.Tier, task.Division); err != nil {
		return NewAPIError(err.Error(), http.StatusBadRequest)
	}
	return nil
}

// GatherHandler enqueues a gather task over NATS and returns immediately.
func GatherHandler(publisher GatherPublisher, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewAPIError("method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		var task GatherTask
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			writeError(w, NewAPIError("invalid request body", http.StatusBadRequest), logger, r)
			return
		}
		if err := validateGatherTask(&task); err != nil {
			writeError(w, err, logger, r)
			return
		}

		if err := publisher.PublishGatherTask(task); err != nil {
			logger.Error("gather_task_publish_failed").
				Component("gather").
				Operation("enqueue").
				Game("", task.Platform, task.Tier).
				Err(err).
				Log()
			writeError(w, NewAPIError("failed to enqueue gather task", http.StatusBadGateway), logger, r)
			return
		}

		logger.Info("gather_task_enqueued").
			Component("gather").
			Operation("enqueue").
			Game("", task.Platform, task.Tier).
			Meta("target", task.TargetMatches).
			Log()

		w.WriteHeader(http.StatusAccepted)
		writeJSON(w, map[string]interface{}{"status": "queued"}, logger, r)
	})
}

// GatherRunHandler runs a gather synchronously and reports the processed
// count. Useful for small targets and manual runs.
func GatherRunHandler(runner *QueryRunner, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewAPIError("method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		var task GatherTask
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			writeError(w, NewAPIError("invalid request body", http.StatusBadRequest), logger, r)
			return
		}
		if err := validateGatherTask(&task); err != nil {
			writeError(w, err, logger, r)
			return
		}

		rank, _ := RankFromTier(task.Tier, task.Division)

		processed, err := runner.QueryMatches(r.Context(), task.Platform, rank, task.StartTime, task.EndTime, task.TargetMatches)
		if err != nil {
			logger.Error("gather_run_failed").
				Component("gather").
				Operation("run").
				Game("", task.Platform, task.Tier).
				Err(err).
				Log()
			writeError(w, NewAPIError("gather run failed", http.StatusBadGateway), logger, r)
			return
		}

		writeJSON(w, map[string]interface{}{
			"processed": processed,
			"target":    task.TargetMatches,
		}, logger, r)
	})
}

// ProgressClearHandler resets all pagination progress. Administrative only.
func ProgressClearHandler(progress ProgressStore, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewAPIError("method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		if err := progress.Clear(r.Context()); err != nil {
			writeError(w, NewAPIError("failed to clear progress", http.StatusInternalServerError), logger, r)
			return
		}

		logger.Warn("progress_cleared").
			Component("admin").
			Operation("clear_progress").
			Log()

		writeJSON(w, map[string]interface{}{"status": "cleared"}, logger, r)
	})
}

// MatchesClearHandler deletes all stored matches and participants.
// Administrative only.
func MatchesClearHandler(matches MatchStore, logger *Logger) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, NewAPIError("method not allowed", http.StatusMethodNotAllowed), logger, r)
			return
		}

		if err := matches.Clear(r.Context()); err != nil {
			writeError(w, NewAPIError("failed to clear matches", http.StatusInternalServerError), logger, r)
			return
		}

		logger.Warn("matches_cleared").
			Component("admin").
			Operation("clear_matches").
			Log()

		writeJSON(w, map[string]interface{}{"status": "cleared"}, logger, r)
	})
}

func MetricsHandler(logger *Logger, metrics *MetricsCollector) http.HandlerFunc {
	return withCORS(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("metrics_request").
			Component("metrics").
			Operation("get_metrics").
			Log()

		writeJSON(w, metrics.GetMetrics(), logger, r)
	})
}
