package orchestrator

// TrialState is the state of one market's walk through the bookmaker groups
type TrialState int

const (
	StatePending TrialState = iota
	StateTrying
	StateSucceeded
	StateExhausted
)

func (s TrialState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateTrying:
		return "trying"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt is one bookmaker group call made for a market
type Attempt struct {
	Group      int
	Bookmakers []string
	Matches    int
	Err        error
}

// Trial tracks one market.
//
//	Pending -> Trying(0)
//	Trying(i) -> Succeeded     non-empty result
//	Trying(i) -> Trying(i+1)   empty result or error
//	Trying(last) -> Exhausted
type Trial struct {
	Market   string
	State    TrialState
	Group    int
	groups   int
	Attempts []Attempt
}

// NewTrial creates a pending trial for market
func NewTrial(market string) *Trial {
	return &Trial{Market: market, State: StatePending}
}

// Start moves a pending trial to Trying(0), or straight to Exhausted when
// there are no groups to try
func (t *Trial) Start(groups int) {
	if t.State != StatePending {
		return
	}

	t.groups = groups
	t.Group = 0
	if groups == 0 {
		t.State = StateExhausted
		return
	}
	t.State = StateTrying
}

// Observe records the result of calling the current group and advances
func (t *Trial) Observe(bookmakers []string, matches int, err error) {
	if t.State != StateTrying {
		return
	}

	t.Attempts = append(t.Attempts, Attempt{
		Group:      t.Group,
		Bookmakers: bookmakers,
		Matches:    matches,
		Err:        err,
	})

	switch {
	case err == nil && matches > 0:
		t.State = StateSucceeded
	case t.Group+1 < t.groups:
		t.Group++
	default:
		t.State = StateExhausted
	}
}
