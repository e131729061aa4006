package publish

import "fmt"

// DeploymentError wraps a failed upload. Transient failures are eligible
// for retry by the job orchestrator; permanent ones fail the job outright.
type DeploymentError struct {
	Transient bool
	Reason    string
	Err       error
}

func (e *DeploymentError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("deployment failed (%s): %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("deployment failed (%s): %s", kind, e.Reason)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}
