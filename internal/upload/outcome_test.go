package upload

import (
	"testing"
	"time"

	"github.com/angelmondragon/dmmedia/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestOutcomeFromWire(t *testing.T) {
	assert.Equal(t, OutcomeReady, outcomeFromWire(nil).Kind)
	assert.Equal(t, OutcomeReady, outcomeFromWire(&processingInfoWire{State: "succeeded"}).Kind)

	failed := outcomeFromWire(&processingInfoWire{State: "FAILED"})
	assert.Equal(t, OutcomeFailed, failed.Kind)
	assert.Equal(t, enums.ProcessingStateFailed, failed.Info.State)

	pending := outcomeFromWire(&processingInfoWire{State: "pending", CheckAfterSecs: 5, ProgressPercent: 10})
	assert.Equal(t, OutcomeProcessing, pending.Kind)
	assert.Equal(t, 5*time.Second, pending.Info.CheckAfter())
	assert.Equal(t, 10, pending.Info.ProgressPercent)

	unknown := outcomeFromWire(&processingInfoWire{State: "transcoding"})
	assert.Equal(t, OutcomeProcessing, unknown.Kind)
	assert.Equal(t, enums.ProcessingState("transcoding"), unknown.Info.State)
}

func TestPollPolicyDelay(t *testing.T) {
	policy := PollPolicy{DefaultInterval: 2 * time.Second}.normalized()
	assert.Equal(t, 2*time.Second, policy.delayFor(ProcessingInfo{}))
	assert.Equal(t, 7*time.Second, policy.delayFor(ProcessingInfo{CheckAfterSecs: 7}))
	assert.Equal(t, defaultPollMaxAttempts, policy.MaxAttempts)
}

func TestSessionTransitions(t *testing.T) {
	session := &Session{Phase: enums.UploadPhaseInitiated}
	assert.NoError(t, session.advance(enums.UploadPhaseAppended))
	assert.Error(t, session.advance(enums.UploadPhaseSucceeded))
	session.fail()
	assert.Equal(t, enums.UploadPhaseFailed, session.Phase)

	done := &Session{Phase: enums.UploadPhaseSucceeded}
	done.fail()
	assert.Equal(t, enums.UploadPhaseSucceeded, done.Phase)
}
