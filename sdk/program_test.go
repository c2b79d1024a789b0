package sdk

import (
	"testing"
	"time"

	"github.com/arcwell/robogate/testutil"
	"github.com/arcwell/robogate/types"
)

func TestRunProgram_SleepStepHandledLocallyWithoutRPC(t *testing.T) {
	called := false
	client := newTestClient(t, func(req types.RPCFrame) types.RPCFrame {
		called = true
		return types.RPCFrame{ID: req.ID}
	})
	program := types.Program{Steps: []types.Step{
		{Kind: types.StepSleep, Sleep: &types.SleepParams{Duration: time.Millisecond}},
	}}
	testutil.RequireNoError(t, RunProgram(client, program))
	testutil.AssertFalse(t, called)
}

func TestRunProgram_StopsAtFirstError(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(req types.RPCFrame) types.RPCFrame {
		calls++
		return types.RPCFrame{ID: req.ID, Error: "boom"}
	})
	program := types.Program{Steps: []types.Step{
		{Kind: types.StepArmStop},
		{Kind: types.StepBaseStop},
	}}
	err := RunProgram(client, program)
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, 1, calls)
}

func TestRunProgram_MissingPayloadRejected(t *testing.T) {
	client := newTestClient(t, func(req types.RPCFrame) types.RPCFrame {
		return types.RPCFrame{ID: req.ID}
	})
	program := types.Program{Steps: []types.Step{{Kind: types.StepArmMove}}}
	err := RunProgram(client, program)
	testutil.AssertError(t, err)
}

func TestRunProgram_UnknownStepKindRejected(t *testing.T) {
	client := newTestClient(t, func(req types.RPCFrame) types.RPCFrame {
		return types.RPCFrame{ID: req.ID}
	})
	program := types.Program{Steps: []types.Step{{Kind: types.StepKind("bogus")}}}
	err := RunProgram(client, program)
	testutil.AssertError(t, err)
}
