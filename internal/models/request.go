package models

// TrainRequest starts a training job. Omitted sections fall back to the
// server configuration.
type TrainRequest struct {
	Name   string           `json:"name,omitempty" validate:"max=64"`
	Data   *DataRequest     `json:"data,omitempty"`
	Tuning *TuningOverrides `json:"tuning,omitempty"`
}

// DataRequest selects the training series
type DataRequest struct {
	Source string `json:"source" validate:"oneof=synthetic inline"`
	// synthetic
	Rows int   `json:"rows,omitempty"`
	Seed int64 `json:"seed,omitempty"`
	// inline: aligned series in original units, NaN gaps as null
	Target        []*float64    `json:"target,omitempty"`
	Exogenous     [2][]*float64 `json:"exogenous,omitempty"`
	ExogenousName [2]string     `json:"exogenous_names,omitempty"`

	Lags          int     `json:"lags,omitempty"`
	TrainFraction float64 `json:"train_fraction,omitempty"`
}

// TuningOverrides replaces individual tuning options for one job
type TuningOverrides struct {
	RunTuneFIS        *bool    `json:"run_tune_fis,omitempty"`
	NumMaxRules       *int     `json:"num_max_rules,omitempty"`
	PopulationSize    *int     `json:"population_size,omitempty"`
	CrossoverFraction *float64 `json:"crossover_fraction,omitempty"`
	MaxGenerations    *int     `json:"max_generations,omitempty"`
	UseParallel       *bool    `json:"use_parallel,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
}

// ForecastRequest carries feature rows in original units, ordered like the
// model's feature_names
type ForecastRequest struct {
	Rows          [][]float64 `json:"rows" validate:"required,min=1"`
	IncludeFiring bool        `json:"include_firing,omitempty"`
}
