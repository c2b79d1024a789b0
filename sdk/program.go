package sdk

import (
	"fmt"
	"time"

	"github.com/arcwell/robogate/types"
)

// RunProgram executes each Step in order through client, stopping and
// returning the first error — matches §9's "failures raise so that
// control returns to the executor". Sleep steps are handled locally;
// everything else round-trips to the parent.
func RunProgram(client *Client, program types.Program) error {
	for i, step := range program.Steps {
		if err := runStep(client, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Kind, err)
		}
	}
	return nil
}

func runStep(client *Client, step types.Step) error {
	switch step.Kind {
	case types.StepArmMove:
		if step.ArmMove == nil {
			return fmt.Errorf("arm_move step missing payload")
		}
		return client.ArmMove(*step.ArmMove)

	case types.StepArmStop:
		return client.ArmStop()

	case types.StepBaseMove:
		if step.BaseMove == nil {
			return fmt.Errorf("base_move step missing payload")
		}
		return client.BaseMove(*step.BaseMove)

	case types.StepBaseStop:
		return client.BaseStop()

	case types.StepGripper:
		if step.Gripper == nil {
			return fmt.Errorf("gripper step missing payload")
		}
		return client.Gripper(*step.Gripper)

	case types.StepSleep:
		if step.Sleep == nil {
			return fmt.Errorf("sleep step missing payload")
		}
		time.Sleep(step.Sleep.Duration)
		return nil

	case types.StepReadState:
		_, err := client.ReadState()
		return err

	case types.StepRewind:
		if step.Rewind == nil {
			return fmt.Errorf("rewind step missing payload")
		}
		_, err := client.Rewind(*step.Rewind)
		return err

	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}
