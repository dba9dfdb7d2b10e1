package database

// Posting is a stored job posting as delivered by a source adapter.
type Posting struct {
	ID          string
	Title       string
	Company     *string
	City        *string
	State       *string
	Country     *string
	URL         *string
	Description *string
	SalaryMin   *float64
	SalaryMax   *float64
	Currency    *string
	PostedDate  *string
	Source      string
	FetchDay    string
	CollectedAt *string
}

// Forecast is a stored forecast point for one category and date.
type Forecast struct {
	Date        string
	Category    string
	Forecast    float64
	Lower       float64
	Upper       float64
	GeneratedAt *string
}

// RunReport holds metadata about a pipeline run.
type RunReport struct {
	ID            string
	FetchDay      string
	Degraded      bool
	PostingCount  int
	AlertCount    int
	MomentumScore float64
	GeneratedAt   *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalPostings int
	FetchDays     int
	Sources       int
	Forecasts     int
	Runs          int
}
