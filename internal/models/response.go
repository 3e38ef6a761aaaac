package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	ActiveJobs int    `json:"active_jobs"`
}

// StatusCancelling is reported when a cancel request reached a running job
const StatusCancelling = "cancelling"

// TrainResponse is returned when a training job is accepted or cancelled
type TrainResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// StageView summarizes one tuning stage of a model
type StageView struct {
	Stage         string  `json:"stage"`
	Optimization  string  `json:"optimization"`
	AsymmetricLag bool    `json:"asymmetric_lag"`
	Skipped       bool    `json:"skipped"`
	BestFitness   float64 `json:"best_fitness"`
	Generations   int     `json:"generations"`
	Evaluations   int     `json:"evaluations"`
	Undefined     int     `json:"undefined_rows"`
	StopReason    string  `json:"stop_reason,omitempty"`
	Rules         int     `json:"rules"`
	ElapsedMs     int64   `json:"elapsed_ms"`
}

// ScoresView holds validation errors in original units
type ScoresView struct {
	RMSE      float64 `json:"rmse"`
	MAE       float64 `json:"mae"`
	MAPE      float64 `json:"mape"`
	Rows      int     `json:"rows"`
	Undefined int     `json:"undefined"`
}

// ModelResponse represents a training job and its result
type ModelResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       string                `json:"status"`
	Error        string                `json:"error,omitempty"`
	CreatedAt    string                `json:"created_at"`
	UpdatedAt    string                `json:"updated_at"`
	Seed         int64                 `json:"seed"`
	FeatureNames []string              `json:"feature_names,omitempty"`
	Stages       []StageView           `json:"stages,omitempty"`
	Validation   map[string]ScoresView `json:"validation,omitempty"`
	OutputNames  []string              `json:"output_names,omitempty"`
	// Anomalies counts validation rows with an outlying residual
	Anomalies int `json:"anomalies"`
}

// ModelListResponse represents list models response
type ModelListResponse struct {
	Models []ModelResponse `json:"models"`
	Count  int             `json:"count"`
}

// RulesResponse carries the rule report of a completed model
type RulesResponse struct {
	ID          string   `json:"id"`
	OutputNames []string `json:"output_names"`
	Rules       []string `json:"rules"`
	Text        string   `json:"text"`
}

// Prediction is one forecast row. Value is null when no rule fired.
type Prediction struct {
	Value      *float64  `json:"value"`
	Normalized *float64  `json:"normalized"`
	Defined    bool      `json:"defined"`
	Clamped    int       `json:"clamped,omitempty"`
	Firing     []float64 `json:"firing,omitempty"`
}

// ForecastResponse represents forecast response
type ForecastResponse struct {
	ID          string       `json:"id"`
	Predictions []Prediction `json:"predictions"`
	Count       int          `json:"count"`
	Undefined   int          `json:"undefined"`
}

// StageEvent is published to the event queue at every stage transition
type StageEvent struct {
	ModelID     string   `json:"model_id"`
	Stage       string   `json:"stage"`
	Status      string   `json:"status"`
	BestFitness *float64 `json:"best_fitness,omitempty"`
	Generations int      `json:"generations,omitempty"`
	Rules       int      `json:"rules,omitempty"`
	Error       string   `json:"error,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
