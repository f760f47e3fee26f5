// Package script runs the editor console: short zygomys Lisp programs
// whose builtins drive editor operations, such as
//
//	(box 20 10 5)
//	(move 0 0 30)
//	(select 0) (select-secondary 1)
//	(union)
//
// Every evaluation gets a fresh sandbox. A new evaluation supersedes the
// previous one and cancels whatever builtins it had left to run.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/kerf/pkg/prompt"
	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultTimeout is the hard limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

// EvalError is a non-fatal error in user code: a parse error, an unknown
// symbol or a builtin rejecting its arguments.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Result is what a successful evaluation reports back to the console.
type Result struct {
	// Value is the printed value of the last expression.
	Value string `json:"value"`
	// Models lists the indices of models added or produced, in order.
	Models []int `json:"models"`
}

// Engine evaluates console programs against an Editor. It is safe for
// concurrent use.
type Engine struct {
	editor  Editor
	logger  *slog.Logger
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// New returns an Engine driving ed.
func New(ed Editor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{editor: ed, logger: logger, Timeout: DefaultTimeout}
}

// Evaluate runs source.
//
// Return semantics:
//   - On success: result + nil eval errors + nil error
//   - On parse or runtime failure in user code: nil + eval errors + nil
//   - On timeout, cancellation or supersession: nil + nil + error
//
// Builtins that ran before a failure keep their effect on the scene; each
// of them is an ordinary undoable editor operation.
func (e *Engine) Evaluate(ctx context.Context, source string) (*Result, []EvalError, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("script: %w", err)
	}
	ctx, cancel := context.WithCancel(prompt.Unattended(ctx))
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	e.cancel = cancel
	timeout := e.Timeout
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("script: panic during evaluation: %v", r)}
			}
		}()
		res, evalErrs := e.evaluate(ctx, source)
		ch <- evalResult{result: res, errors: evalErrs}
	}()

	res, evalErrs, err := waitWithTimeout(ctx, ch, timeout, gen, e.current)
	if err != nil {
		e.logger.Warn("script: evaluation aborted", "generation", gen, "err", err)
	} else if len(evalErrs) > 0 {
		e.logger.Info("script: evaluation failed", "generation", gen, "err", evalErrs[0])
	}
	return res, evalErrs, err
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) evaluate(ctx context.Context, source string) (*Result, []EvalError) {
	res := &Result{}
	if strings.TrimSpace(source) == "" {
		return res, nil
	}

	// The sandbox keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(ctx, env, e.editor, res)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	v, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err)
	}
	if v != nil {
		res.Value = v.SexpString(nil)
	}
	return res, nil
}

// zygomys reports parse errors as "Error on line N: ...".
var (
	linePattern      = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)
	linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)
)

// parseZygomysError turns an interpreter error into an EvalError, with a
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
