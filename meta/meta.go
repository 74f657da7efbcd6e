// meta/meta.go
package meta

import "time"

// BATCH_SIZE is the number of simulations between two yield points.
const BATCH_SIZE = 1000

// PROGRESS_INTERVAL is the number of simulations between progress messages.
const PROGRESS_INTERVAL = 5000

// WITH_CUTOFF caps the length of a rollout in plies.
const WITH_CUTOFF = 150

// MATE_DEPTH is the depth of the forced-win check run before each search.
const MATE_DEPTH = 3

// EXPLORATION is the UCB1 exploration constant C.
const EXPLORATION = 1.41

// BOOK_WIN_RATE is the win rate reported for an opening book move.
const BOOK_WIN_RATE = 0.55

// ANALYZE_DURATION is the fixed budget of an analysis search.
const ANALYZE_DURATION = 3 * time.Second

// MAX_TURNS ends a self-play game as a draw.
const MAX_TURNS = 300

// MAX_TIME_BUDGET is the longest search a start request may ask for.
const MAX_TIME_BUDGET = 24 * time.Hour
