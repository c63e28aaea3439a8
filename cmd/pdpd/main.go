package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/CameronXie/xacml-engine/internal/version"
	"github.com/CameronXie/xacml-engine/xacml/pdp"
	"github.com/CameronXie/xacml-engine/xacml/policyprovider"
	"github.com/CameronXie/xacml-engine/xacml/request"
)

const (
	PolicyDirEnv   = "POLICY_DIR"
	PolicyDSNEnv   = "POLICY_DB_DSN"
	RootPolicyEnv  = "ROOT_POLICY_ID"
	RootIsSetEnv   = "ROOT_IS_POLICY_SET"
	EnvOverrideEnv = "PDP_ENV_OVERRIDES_REQUEST"

	ReadTimeout  = 5 * time.Second
	WriteTimeout = 10 * time.Second
	IdleTimeout  = 120 * time.Second

	PortNumber = 8080
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(
		slog.String("version", version.Version),
	)

	provider, err := newPolicyProvider()
	if err != nil {
		log.Fatal(err)
	}

	engine := pdp.New(provider,
		pdp.WithLogger(logger),
		pdp.WithEnvOverridesRequest(os.Getenv(EnvOverrideEnv) == "true"),
	)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/decisions", newDecisionHandler(engine, logger))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%v", PortNumber),
		Handler:      mux,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	log.Printf("Starting PDP on :%v (Version: %s)\n", PortNumber, version.Version)
	log.Fatal(server.ListenAndServe())
}

// newPolicyProvider picks the policy store from the environment: a SQL store
// when POLICY_DB_DSN is set, otherwise a filesystem store under POLICY_DIR.
func newPolicyProvider() (pdp.PolicyProvider, error) {
	rootID := os.Getenv(RootPolicyEnv)
	if rootID == "" {
		return nil, fmt.Errorf("%s must name the root policy", RootPolicyEnv)
	}
	rootIsSet := os.Getenv(RootIsSetEnv) == "true"

	if dsn := os.Getenv(PolicyDSNEnv); dsn != "" {
		db, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open policy database: %w", err)
		}

		option := policyprovider.WithSQLRootPolicy(rootID)
		if rootIsSet {
			option = policyprovider.WithSQLRootPolicySet(rootID)
		}
		return policyprovider.NewSQLStore(db, option), nil
	}

	dir := os.Getenv(PolicyDirEnv)
	if dir == "" {
		return nil, fmt.Errorf("either %s or %s must be set", PolicyDSNEnv, PolicyDirEnv)
	}

	option := policyprovider.WithRootPolicy(rootID)
	if rootIsSet {
		option = policyprovider.WithRootPolicySet(rootID)
	}
	return policyprovider.NewFileStore(dir, option), nil
}

func newDecisionHandler(engine *pdp.PDP, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req request.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.ErrorContext(r.Context(), "request_decoding_failed",
				slog.String("error", err.Error()),
			)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid decision request"})
			return
		}
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}

		resp, err := engine.Evaluate(r.Context(), &req)
		if err != nil {
			logger.ErrorContext(r.Context(), "evaluation_failed",
				slog.String("error", err.Error()),
				slog.Duration("duration_ms", time.Since(start)),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "evaluation failed"})
			return
		}

		result := resp.Results[0]
		logger.InfoContext(r.Context(), "decision",
			slog.String("request_id", req.ID.String()),
			slog.String("decision", result.Decision),
			slog.String("status_code", result.Status.Code),
			slog.Int("obligations_count", len(result.Obligations)),
			slog.Duration("duration_ms", time.Since(start)),
		)
		writeJSON(w, http.StatusOK, resp)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
