package jobs

import (
	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

// Operation names.
const (
	OpGetPendingJobExecutions      = "GetPendingJobExecutions"
	OpDescribeJobExecution         = "DescribeJobExecution"
	OpStartNextPendingJobExecution = "StartNextPendingJobExecution"
	OpUpdateJobExecution           = "UpdateJobExecution"

	OpJobExecutionsChanged    = "CreateJobExecutionsChangedStream"
	OpNextJobExecutionChanged = "CreateNextJobExecutionChangedStream"
)

const tokenPath = "clientToken"

// Topic returns the jobs topic prefix of a thing.
func Topic(thingName string) string {
	return "$aws/things/" + thingName + "/jobs"
}

func jobsOperation[Req, Resp any](name string, topic func(Req) string, setToken func(*Req, string)) *servicemodel.OperationModel {
	return servicemodel.NewOperation(servicemodel.OperationSpec[Req]{
		Name:           name,
		InputShapeName: name + "Request",
		PublishTopic:   topic,
		ResponsePaths: func(r Req) []servicemodel.ResponsePath {
			return servicemodel.AcceptedRejected[Resp, RejectedErrorResponse](topic(r), tokenPath, name+" request rejected")
		},
		ApplyCorrelationToken: servicemodel.ClientToken(setToken),
	})
}

// NewServiceModel returns the jobs service model.
func NewServiceModel() *servicemodel.ServiceModel {
	return &servicemodel.ServiceModel{
		RequestResponseOperations: map[string]*servicemodel.OperationModel{
			OpGetPendingJobExecutions: jobsOperation[GetPendingJobExecutionsRequest, GetPendingJobExecutionsResponse](
				OpGetPendingJobExecutions,
				func(r GetPendingJobExecutionsRequest) string { return Topic(r.ThingName) + "/get" },
				func(r *GetPendingJobExecutionsRequest, t string) { r.ClientToken = t }),
			OpDescribeJobExecution: jobsOperation[DescribeJobExecutionRequest, DescribeJobExecutionResponse](
				OpDescribeJobExecution,
				func(r DescribeJobExecutionRequest) string { return Topic(r.ThingName) + "/" + r.JobID + "/get" },
				func(r *DescribeJobExecutionRequest, t string) { r.ClientToken = t }),
			OpStartNextPendingJobExecution: jobsOperation[StartNextPendingJobExecutionRequest, StartNextJobExecutionResponse](
				OpStartNextPendingJobExecution,
				func(r StartNextPendingJobExecutionRequest) string { return Topic(r.ThingName) + "/start-next" },
				func(r *StartNextPendingJobExecutionRequest, t string) { r.ClientToken = t }),
			OpUpdateJobExecution: jobsOperation[UpdateJobExecutionRequest, UpdateJobExecutionResponse](
				OpUpdateJobExecution,
				func(r UpdateJobExecutionRequest) string { return Topic(r.ThingName) + "/" + r.JobID + "/update" },
				func(r *UpdateJobExecutionRequest, t string) { r.ClientToken = t }),
		},
		StreamingOperations: map[string]*servicemodel.StreamingOperationModel{
			OpJobExecutionsChanged: servicemodel.NewStreamingOperation[JobExecutionsChangedSubscriptionRequest, JobExecutionsChangedEvent](
				servicemodel.StreamingSpec[JobExecutionsChangedSubscriptionRequest]{
					Name:           OpJobExecutionsChanged,
					InputShapeName: "JobExecutionsChangedSubscriptionRequest",
					Topic: func(c JobExecutionsChangedSubscriptionRequest) string {
						return Topic(c.ThingName) + "/notify"
					},
				}),
			OpNextJobExecutionChanged: servicemodel.NewStreamingOperation[NextJobExecutionChangedSubscriptionRequest, NextJobExecutionChangedEvent](
				servicemodel.StreamingSpec[NextJobExecutionChangedSubscriptionRequest]{
					Name:           OpNextJobExecutionChanged,
					InputShapeName: "NextJobExecutionChangedSubscriptionRequest",
					Topic: func(c NextJobExecutionChangedSubscriptionRequest) string {
						return Topic(c.ThingName) + "/notify-next"
					},
				}),
		},
		Shapes: map[string]servicemodel.ShapeValidator{
			"GetPendingJobExecutionsRequest":      servicemodel.StructValidator[GetPendingJobExecutionsRequest]("GetPendingJobExecutionsRequest"),
			"DescribeJobExecutionRequest":         servicemodel.StructValidator[DescribeJobExecutionRequest]("DescribeJobExecutionRequest"),
			"StartNextPendingJobExecutionRequest": servicemodel.StructValidator[StartNextPendingJobExecutionRequest]("StartNextPendingJobExecutionRequest"),
			"UpdateJobExecutionRequest":           servicemodel.StructValidator[UpdateJobExecutionRequest]("UpdateJobExecutionRequest"),

			"JobExecutionsChangedSubscriptionRequest":    servicemodel.StructValidator[JobExecutionsChangedSubscriptionRequest]("JobExecutionsChangedSubscriptionRequest"),
			"NextJobExecutionChangedSubscriptionRequest": servicemodel.StructValidator[NextJobExecutionChangedSubscriptionRequest]("NextJobExecutionChangedSubscriptionRequest"),
		},
	}
}
