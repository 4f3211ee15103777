package jobs

import (
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// JobStatus is the status of a job execution.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusTimedOut   JobStatus = "TIMED_OUT"
	JobStatusFailed     JobStatus = "FAILED"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusCanceled   JobStatus = "CANCELED"
	JobStatusRejected   JobStatus = "REJECTED"
	JobStatusRemoved    JobStatus = "REMOVED"
)

// Terminal reports whether no further update is accepted for the status.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusFailed, JobStatusSucceeded, JobStatusCanceled, JobStatusRejected, JobStatusRemoved, JobStatusTimedOut:
		return true
	}
	return false
}

// RejectedErrorCode is the code of a rejected jobs request.
type RejectedErrorCode string

const (
	RejectedInvalidTopic           RejectedErrorCode = "InvalidTopic"
	RejectedInvalidJSON            RejectedErrorCode = "InvalidJson"
	RejectedInvalidRequest         RejectedErrorCode = "InvalidRequest"
	RejectedInvalidStateTransition RejectedErrorCode = "InvalidStateTransition"
	RejectedResourceNotFound       RejectedErrorCode = "ResourceNotFound"
	RejectedVersionMismatch        RejectedErrorCode = "VersionMismatch"
	RejectedInternalError          RejectedErrorCode = "InternalError"
	RejectedRequestThrottled       RejectedErrorCode = "RequestThrottled"
	RejectedTerminalStateReached   RejectedErrorCode = "TerminalStateReached"
)

// RejectedErrorResponse is the body of every rejected jobs request.
// ExecutionState is present on VersionMismatch.
type RejectedErrorResponse struct {
	ClientToken    string                  `json:"clientToken,omitempty"`
	Code           RejectedErrorCode       `json:"code"`
	Message        string                  `json:"message,omitempty"`
	Timestamp      *servicemodel.EpochTime `json:"timestamp,omitempty"`
	ExecutionState *JobExecutionState      `json:"executionState,omitempty"`
}

// JobExecutionSummary is one entry of a pending job list.
type JobExecutionSummary struct {
	JobID           string                  `json:"jobId"`
	ExecutionNumber *int64                  `json:"executionNumber,omitempty"`
	VersionNumber   *int64                  `json:"versionNumber,omitempty"`
	QueuedAt        *servicemodel.EpochTime `json:"queuedAt,omitempty"`
	StartedAt       *servicemodel.EpochTime `json:"startedAt,omitempty"`
	LastUpdatedAt   *servicemodel.EpochTime `json:"lastUpdatedAt,omitempty"`
}

// JobExecutionData is a full job execution.
type JobExecutionData struct {
	JobID           string                  `json:"jobId"`
	ThingName       string                  `json:"thingName,omitempty"`
	JobDocument     map[string]any          `json:"jobDocument,omitempty"`
	Status          JobStatus               `json:"status,omitempty"`
	StatusDetails   map[string]string       `json:"statusDetails,omitempty"`
	ExecutionNumber *int64                  `json:"executionNumber,omitempty"`
	VersionNumber   *int64                  `json:"versionNumber,omitempty"`
	QueuedAt        *servicemodel.EpochTime `json:"queuedAt,omitempty"`
	StartedAt       *servicemodel.EpochTime `json:"startedAt,omitempty"`
	LastUpdatedAt   *servicemodel.EpochTime `json:"lastUpdatedAt,omitempty"`
}

// JobExecutionState is the status part of a job execution.
type JobExecutionState struct {
	Status        JobStatus         `json:"status,omitempty"`
	StatusDetails map[string]string `json:"statusDetails,omitempty"`
	VersionNumber *int64            `json:"versionNumber,omitempty"`
}

// GetPendingJobExecutionsRequest lists the thing's unfinished executions.
type GetPendingJobExecutionsRequest struct {
	ThingName   string `json:"-" validate:"required,topicsafe"`
	ClientToken string `json:"clientToken,omitempty"`
}

// GetPendingJobExecutionsResponse splits pending executions by status.
type GetPendingJobExecutionsResponse struct {
	ClientToken    string                  `json:"clientToken,omitempty"`
	InProgressJobs []JobExecutionSummary   `json:"inProgressJobs,omitempty"`
	QueuedJobs     []JobExecutionSummary   `json:"queuedJobs,omitempty"`
	Timestamp      *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// DescribeJobExecutionRequest reads one execution. JobID "$next" selects
// the next pending execution.
type DescribeJobExecutionRequest struct {
	ThingName          string `json:"-" validate:"required,topicsafe"`
	JobID              string `json:"-" validate:"required,topicsafe"`
	ExecutionNumber    *int64 `json:"executionNumber,omitempty"`
	IncludeJobDocument *bool  `json:"includeJobDocument,omitempty"`
	ClientToken        string `json:"clientToken,omitempty"`
}

// DescribeJobExecutionResponse carries the described execution.
type DescribeJobExecutionResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	Execution   *JobExecutionData       `json:"execution,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// StartNextPendingJobExecutionRequest moves the next queued execution to IN_PROGRESS.
type StartNextPendingJobExecutionRequest struct {
	ThingName            string            `json:"-" validate:"required,topicsafe"`
	ClientToken          string            `json:"clientToken,omitempty"`
	StepTimeoutInMinutes *int64            `json:"stepTimeoutInMinutes,omitempty"`
	StatusDetails        map[string]string `json:"statusDetails,omitempty"`
}

// StartNextJobExecutionResponse carries the started execution, or none
// when nothing is pending.
type StartNextJobExecutionResponse struct {
	ClientToken string                  `json:"clientToken,omitempty"`
	Execution   *JobExecutionData       `json:"execution,omitempty"`
	Timestamp   *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// UpdateJobExecutionRequest reports progress on an execution.
type UpdateJobExecutionRequest struct {
	ThingName                string            `json:"-" validate:"required,topicsafe"`
	JobID                    string            `json:"-" validate:"required,topicsafe"`
	Status                   JobStatus         `json:"status" validate:"required,oneof=IN_PROGRESS FAILED SUCCEEDED REJECTED"`
	StatusDetails            map[string]string `json:"statusDetails,omitempty"`
	ExpectedVersion          *int64            `json:"expectedVersion,omitempty"`
	ExecutionNumber          *int64            `json:"executionNumber,omitempty"`
	IncludeJobExecutionState *bool             `json:"includeJobExecutionState,omitempty"`
	IncludeJobDocument       *bool             `json:"includeJobDocument,omitempty"`
	StepTimeoutInMinutes     *int64            `json:"stepTimeoutInMinutes,omitempty"`
	ClientToken              string            `json:"clientToken,omitempty"`
}

// UpdateJobExecutionResponse acknowledges an update.
type UpdateJobExecutionResponse struct {
	ClientToken    string                  `json:"clientToken,omitempty"`
	ExecutionState *JobExecutionState      `json:"executionState,omitempty"`
	JobDocument    map[string]any          `json:"jobDocument,omitempty"`
	Timestamp      *servicemodel.EpochTime `json:"timestamp,omitempty"`
}

// JobExecutionsChangedSubscriptionRequest selects the notify stream.
type JobExecutionsChangedSubscriptionRequest struct {
	ThingName string `json:"-" validate:"required,topicsafe"`
}

// JobExecutionsChangedEvent lists pending executions by status after a change.
type JobExecutionsChangedEvent struct {
	Jobs      map[JobStatus][]JobExecutionSummary `json:"jobs"`
	Timestamp *servicemodel.EpochTime             `json:"timestamp,omitempty"`
}

// NextJobExecutionChangedSubscriptionRequest selects the notify-next stream.
type NextJobExecutionChangedSubscriptionRequest struct {
	ThingName string `json:"-" validate:"required,topicsafe"`
}

// NextJobExecutionChangedEvent carries the new next execution. Execution
// is nil when nothing is pending.
type NextJobExecutionChangedEvent struct {
	Execution *JobExecutionData       `json:"execution,omitempty"`
	Timestamp *servicemodel.EpochTime `json:"timestamp,omitempty"`
}
