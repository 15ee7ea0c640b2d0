// Package player runs a quiz attempt as a server-side state machine:
// Loading, then Presenting and Feedback for each question, then Finished.
package player

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"readquest/internal/models"
)

var (
	ErrWrongState    = errors.New("action not allowed in current state")
	ErrInvalidChoice = errors.New("choice out of range")
	ErrNoQuestions   = errors.New("quiz has no questions")
)

type State int

const (
	StateLoading State = iota
	StatePresenting
	StateFeedback
	StateFinished
	StateCancelled
)

var stateNames = map[State]string{
	StateLoading:    "loading",
	StatePresenting: "presenting",
	StateFeedback:   "feedback",
	StateFinished:   "finished",
	StateCancelled:  "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Answer is the locked-in choice for one question
type Answer struct {
	Choice  int  `json:"choice"`
	Correct bool `json:"correct"`
}

// Summary is handed to the finish hook exactly once
type Summary struct {
	Score   int      `json:"score"`
	Total   int      `json:"total"`
	Answers []Answer `json:"answers"`
}

// Percent expresses the score on a 0..100 scale
func (s Summary) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Score*100 + s.Total/2) / s.Total
}

// Scheduler runs f after d and returns a stop function
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func timerScheduler(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type FeedbackView struct {
	Choice       int  `json:"choice"`
	CorrectIndex int  `json:"correct_index"`
	Correct      bool `json:"correct"`
}

// View is a snapshot safe to show the player. The correct answer is only
// revealed once the question is locked.
type View struct {
	State    State         `json:"state"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Score    int           `json:"score"`
	Question *QuestionView `json:"question,omitempty"`
	Feedback *FeedbackView `json:"feedback,omitempty"`
}

// Player is safe for concurrent use. The feedback timer and HTTP calls may
// race; whichever acts first wins and the other sees the new state.
type Player struct {
	mu        sync.Mutex
	questions []models.Question
	answers   []Answer
	state     State
	index     int
	score     int
	step      int
	delay     time.Duration
	schedule  Scheduler
	stopTimer func() bool
	onFinish  func(Summary)
}

// New creates a player in the Loading state. onFinish may be nil.
func New(delay time.Duration, onFinish func(Summary)) *Player {
	return &Player{
		state:    StateLoading,
		delay:    delay,
		schedule: timerScheduler,
		onFinish: onFinish,
	}
}

// SetScheduler replaces the feedback timer, mainly for tests
func (p *Player) SetScheduler(s Scheduler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schedule = s
}

// Load supplies the question set and presents the first question
func (p *Player) Load(questions []models.Question) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateLoading {
		return ErrWrongState
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}
	p.questions = append([]models.Question(nil), questions...)
	p.answers = make([]Answer, 0, len(questions))
	p.state = StatePresenting
	return nil
}

// Answer locks in a choice for the current question and schedules the
// advance to the next one.
func (p *Player) Answer(choice int) (View, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePresenting {
		return p.viewLocked(), ErrWrongState
	}
	q := p.questions[p.index]
	if choice < 0 || choice >= len(q.Options) {
		return p.viewLocked(), ErrInvalidChoice
	}

	correct := choice == q.CorrectIndex
	if correct {
		p.score++
	}
	p.answers = append(p.answers, Answer{Choice: choice, Correct: correct})
	p.state = StateFeedback
	p.step++

	step := p.step
	p.stopTimer = p.schedule(p.delay, func() { p.autoAdvance(step) })
	return p.viewLocked(), nil
}

func (p *Player) autoAdvance(step int) {
	p.mu.Lock()
	if p.state != StateFeedback || p.step != step {
		p.mu.Unlock()
		return
	}
	summary, finished := p.advanceLocked()
	p.mu.Unlock()

	if finished {
		p.finish(summary)
	}
}

// Advance skips the rest of the feedback delay
func (p *Player) Advance() (View, error) {
	p.mu.Lock()
	if p.state != StateFeedback {
		view := p.viewLocked()
		p.mu.Unlock()
		return view, ErrWrongState
	}
	if p.stopTimer != nil {
		p.stopTimer()
	}
	summary, finished := p.advanceLocked()
	view := p.viewLocked()
	p.mu.Unlock()

	if finished {
		p.finish(summary)
	}
	return view, nil
}

func (p *Player) advanceLocked() (Summary, bool) {
	p.stopTimer = nil
	if p.index+1 < len(p.questions) {
		p.index++
		p.state = StatePresenting
		return Summary{}, false
	}
	p.state = StateFinished
	return Summary{
		Score:   p.score,
		Total:   len(p.questions),
		Answers: append([]Answer(nil), p.answers...),
	}, true
}

func (p *Player) finish(summary Summary) {
	if p.onFinish != nil {
		p.onFinish(summary)
	}
}

// Cancel abandons the attempt. Progress is discarded and the finish hook
// never runs. Cancelling a finished attempt does nothing.
func (p *Player) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateFinished || p.state == StateCancelled {
		return
	}
	if p.stopTimer != nil {
		p.stopTimer()
		p.stopTimer = nil
	}
	p.state = StateCancelled
}

// State returns the current state
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// View returns a snapshot of the attempt
func (p *Player) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *Player) viewLocked() View {
	view := View{
		State: p.state,
		Index: p.index,
		Total: len(p.questions),
		Score: p.score,
	}
	if p.state != StatePresenting && p.state != StateFeedback {
		return view
	}

	q := p.questions[p.index]
	view.Question = &QuestionView{Text: q.Question, Options: q.Options}
	if p.state == StateFeedback {
		last := p.answers[len(p.answers)-1]
		view.Feedback = &FeedbackView{Choice: last.Choice, CorrectIndex: q.CorrectIndex, Correct: last.Correct}
	}
	return view
}
