// Package executor runs a submitted Program in an isolated child
// process (component H), never in the gateway's own address space.
// The child is the gateway binary re-exec'd with ROBOGATE_SCRIPT_MODE=1
// (see cmd/gateway's scriptmode entrypoint); it talks back to the
// parent's sdk.Client surface over a newline-delimited JSON-RPC shim on
// its stdin/stdout pipes. The executor's own job is spawning that
// child, serving its RPC requests against a commands.Handler, enforcing
// a timeout, and recording the outcome — the same "subprocess
// isolation with an RPC shim to the adapters" design note the original
// code_executor.py followed with a real scripting language and an AST
// validator; the restricted Program vocabulary replaces the validator
// (see DESIGN.md).
package executor

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/arcwell/robogate/clock"
	"github.com/arcwell/robogate/commands"
	"github.com/arcwell/robogate/logger"
	"github.com/arcwell/robogate/rewind"
	"github.com/arcwell/robogate/types"
)

// ScriptModeEnv is the environment variable cmd/gateway checks at
// startup to decide whether to run as the script child instead of the
// normal server.
const ScriptModeEnv = "ROBOGATE_SCRIPT_MODE"

// Executor runs at most one Program at a time, per spec.md §4.H.
type Executor struct {
	cmds  *commands.Handler
	clock clock.Clock
	log   logger.Logger
	cfg   Config

	mu      sync.Mutex
	busy    bool
	current types.ExecutionRecord
	history []types.ExecutionRecord
	cancel  context.CancelFunc
}

// New returns an Executor dispatching script RPC calls to cmds.
func New(cfg Config, cmds *commands.Handler, clk clock.Clock, log logger.Logger) *Executor {
	return &Executor{cfg: cfg, cmds: cmds, clock: clk, log: log.WithComponent("executor")}
}

// IsRunning reports whether a program is currently executing.
func (e *Executor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Status returns the current (or most recent, if idle) execution
// record and whether one is live.
func (e *Executor) Status() (types.ExecutionRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current, e.busy
}

// Result returns the most recently completed execution record.
func (e *Executor) Result() (types.ExecutionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return types.ExecutionRecord{}, ErrNoExecution
	}
	return e.history[len(e.history)-1], nil
}

// Execute spawns a child to run program and returns its execution id
// immediately; the run proceeds in the background, detached from ctx,
// so an HTTP handler's request context going away when it returns the
// execution id doesn't kill the run — only Stop does. timeout <= 0
// uses cfg.DefaultTimeout.
func (e *Executor) Execute(_ context.Context, program types.Program, timeout time.Duration) (types.ExecutionID, error) {
	e.mu.Lock()
	if e.busy {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: %v", types.ErrBusy, ErrAlreadyRunning)
	}
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	id := mintExecutionID()
	runCtx, cancel := context.WithCancel(context.Background())
	e.busy = true
	e.cancel = cancel
	e.current = types.ExecutionRecord{
		ExecutionID: id,
		State:       types.ExecutionRunning,
		StartedAt:   e.clock.Now(),
	}
	e.mu.Unlock()

	go e.run(runCtx, id, program, timeout)
	return id, nil
}

// Stop requests cooperative termination of the live execution, if
// any. It returns ErrNoExecution if nothing is running.
func (e *Executor) Stop() error {
	e.mu.Lock()
	if !e.busy {
		e.mu.Unlock()
		return ErrNoExecution
	}
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (e *Executor) run(ctx context.Context, id types.ExecutionID, program types.Program, timeout time.Duration) {
	record := e.execute(ctx, id, program, timeout)

	e.mu.Lock()
	record.FinishedAt = e.clock.Now()
	e.current = record
	e.history = append(e.history, record)
	if len(e.history) > e.cfg.HistoryLimit {
		e.history = e.history[len(e.history)-e.cfg.HistoryLimit:]
	}
	e.busy = false
	e.cancel = nil
	e.mu.Unlock()

	// Safety floor: whatever happened, leave the arm holding position.
	// §7's "on any command failure the robot is left in a safe state"
	// applies to how a script ends too.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := e.cmds.ArmStop(stopCtx); err != nil {
		e.log.Warnw("post-execution arm stop failed", "execution_id", id, "error", err)
	}
	stopCancel()

	e.log.Infow("execution finished", "execution_id", id, "state", record.State.String())
}

func (e *Executor) execute(ctx context.Context, id types.ExecutionID, program types.Program, timeout time.Duration) types.ExecutionRecord {
	record := types.ExecutionRecord{ExecutionID: id, State: types.ExecutionRunning, StartedAt: e.clock.Now()}

	payload, err := json.Marshal(program)
	if err != nil {
		record.State = types.ExecutionFailed
		record.Error = fmt.Sprintf("encode program: %v", err)
		return record
	}

	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), ScriptModeEnv+"=1")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		record.State = types.ExecutionFailed
		record.Error = fmt.Sprintf("create stdin pipe: %v", err)
		return record
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		record.State = types.ExecutionFailed
		record.Error = fmt.Sprintf("create stdout pipe: %v", err)
		return record
	}
	var stderrBuf safeBuffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		record.State = types.ExecutionFailed
		record.Error = fmt.Sprintf("start child: %v", err)
		return record
	}

	if _, err := stdin.Write(append(payload, '\n')); err != nil {
		e.log.Warnw("failed writing program to child", "execution_id", id, "error", err)
	}

	rpcDone := make(chan struct{})
	go func() {
		defer close(rpcDone)
		e.serveRPC(stdout, stdin, id)
	}()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	timer := e.clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-exited:
		<-rpcDone
		record.Stderr = stderrBuf.String()
		if err == nil {
			record.State = types.ExecutionCompleted
			code := 0
			record.ExitCode = &code
		} else {
			record.State = types.ExecutionFailed
			record.Error = err.Error()
			if ee, ok := err.(*exec.ExitError); ok {
				code := ee.ExitCode()
				record.ExitCode = &code
			}
		}

	case <-timer.Chan():
		e.killChild(cmd)
		<-exited
		<-rpcDone
		record.Stderr = stderrBuf.String()
		record.State = types.ExecutionTimeout
		record.Error = fmt.Sprintf("execution timed out after %s", timeout)

	case <-ctx.Done():
		e.killChild(cmd)
		<-exited
		<-rpcDone
		record.Stderr = stderrBuf.String()
		record.State = types.ExecutionStopped
		record.Error = "execution stopped"
	}

	return record
}

// killChild sends SIGTERM to the child's process group, escalating to
// SIGKILL after cfg.StopGrace — the same grace-then-kill pattern
// supervisor.killProcessGroup uses.
func (e *Executor) killChild(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	_ = syscall.Kill(-pid, syscall.SIGTERM)
	e.clock.Sleep(e.cfg.StopGrace)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

// serveRPC reads request frames from the child's stdout and dispatches
// each to the commands.Handler, writing the reply frame back on the
// child's stdin. It returns when stdout closes (the child exited or
// closed its end).
func (e *Executor) serveRPC(stdout io.Reader, stdin io.Writer, id types.ExecutionID) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var req types.RPCFrame
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			e.log.Warnw("malformed rpc frame", "execution_id", id, "error", err)
			continue
		}
		reply := e.dispatch(req)
		data, err := json.Marshal(reply)
		if err != nil {
			e.log.Warnw("failed encoding rpc reply", "execution_id", id, "error", err)
			continue
		}
		if _, err := stdin.Write(append(data, '\n')); err != nil {
			return
		}
	}
}

// dispatch executes one RPC request against the commands.Handler and
// builds its reply frame. Every call runs with a bounded context so a
// stuck adapter can't wedge the child forever.
func (e *Executor) dispatch(req types.RPCFrame) types.RPCFrame {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := e.dispatchMethod(ctx, types.StepKind(req.Method), req.Params)
	reply := types.RPCFrame{ID: req.ID}
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	if result != nil {
		raw, merr := json.Marshal(result)
		if merr != nil {
			reply.Error = merr.Error()
			return reply
		}
		reply.Result = raw
	}
	return reply
}

func (e *Executor) dispatchMethod(ctx context.Context, method types.StepKind, params json.RawMessage) (any, error) {
	switch method {
	case types.StepArmMove:
		var cmd types.ArmCommand
		if err := json.Unmarshal(params, &cmd); err != nil {
			return nil, err
		}
		return nil, e.cmds.ArmMove(ctx, cmd, types.SourceScript)

	case types.StepArmStop:
		return nil, e.cmds.ArmStop(ctx)

	case types.StepBaseMove:
		var cmd types.BaseCommand
		if err := json.Unmarshal(params, &cmd); err != nil {
			return nil, err
		}
		return nil, e.cmds.BaseMove(ctx, cmd, types.SourceScript)

	case types.StepBaseStop:
		return nil, e.cmds.BaseStop(ctx)

	case types.StepGripper:
		var cmd types.GripperCommand
		if err := json.Unmarshal(params, &cmd); err != nil {
			return nil, err
		}
		return nil, e.cmds.Gripper(ctx, cmd, types.SourceScript)

	case types.StepReadState:
		return e.cmds.Snapshot(), nil

	case types.StepRewind:
		var params_ types.RewindParams
		if err := json.Unmarshal(params, &params_); err != nil {
			return nil, err
		}
		sel, err := toSelection(params_)
		if err != nil {
			return nil, err
		}
		return e.cmds.Rewind(ctx, sel, params_.DryRun)

	default:
		return nil, fmt.Errorf("%w: unknown rpc method %q", types.ErrInvalidArgument, method)
	}
}

// toSelection maps a script's Steps/Percentage request onto a
// rewind.Selection, matching 4.J's SDK surface ("rewind
// (steps/percentage)") — script-driven rewind never addresses a
// waypoint index or "to last safe" directly.
func toSelection(p types.RewindParams) (rewind.Selection, error) {
	switch {
	case p.Steps > 0 && p.Percentage > 0:
		return rewind.Selection{}, fmt.Errorf("%w: exactly one of steps or percentage", types.ErrInvalidArgument)
	case p.Steps > 0:
		return rewind.Selection{Kind: rewind.BySteps, Steps: p.Steps}, nil
	case p.Percentage > 0:
		return rewind.Selection{Kind: rewind.ByPercentage, Percentage: p.Percentage}, nil
	default:
		return rewind.Selection{}, fmt.Errorf("%w: steps or percentage required", types.ErrInvalidArgument)
	}
}

// mintExecutionID returns a fresh random execution id, following the
// same unforgeable-token pattern lease.mintToken uses for lease ids.
func mintExecutionID() types.ExecutionID {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("executor: failed to read random bytes: %v", err))
	}
	return types.ExecutionID(hex.EncodeToString(buf))
}

// safeBuffer is a mutex-guarded bytes.Buffer: cmd.Stderr is written
// from the child's OS thread while the run goroutine may read it.
type safeBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
