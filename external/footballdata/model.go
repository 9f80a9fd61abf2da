package footballdata

type matchesEnvelope struct {
	Matches []matchItem `json:"matches"`
}

type matchItem struct {
	ID          int64           `json:"id"`
	UTCDate     string          `json:"utcDate"`
	Status      string          `json:"status"`
	Matchday    *int            `json:"matchday"`
	Stage       string          `json:"stage"`
	HomeTeam    teamRef         `json:"homeTeam"`
	AwayTeam    teamRef         `json:"awayTeam"`
	Score       scoreBlock      `json:"score"`
	Competition competitionItem `json:"competition"`
}

type teamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	Crest     string `json:"crest"`
}

type competitionItem struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type scoreBlock struct {
	Winner      string    `json:"winner"`
	Duration    string    `json:"duration"`
	FullTime    scoreSide `json:"fullTime"`
	HalfTime    scoreSide `json:"halfTime"`
	RegularTime scoreSide `json:"regularTime"`
	ExtraTime   scoreSide `json:"extraTime"`
	Penalties   scoreSide `json:"penalties"`
}

type scoreSide struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}
