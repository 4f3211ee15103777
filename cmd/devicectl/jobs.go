package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
	"github.com/nerrad567/iot-device-sdk/internal/services/jobs"
)

func newJobsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List, run and watch job executions",
		Long: `Jobs commands act on the job executions of the configured thing.

Examples:
  devicectl jobs pending
  devicectl jobs start-next --step-timeout 10
  devicectl jobs update firmware-42 --status SUCCEEDED --detail version=1.4.2
  devicectl jobs watch --next`,
	}

	cmd.AddCommand(newJobsPendingCmd(flags))
	cmd.AddCommand(newJobsDescribeCmd(flags))
	cmd.AddCommand(newJobsStartNextCmd(flags))
	cmd.AddCommand(newJobsUpdateCmd(flags))
	cmd.AddCommand(newJobsWatchCmd(flags))
	return cmd
}

func newJobsPendingCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending job executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				resp, err := a.jobs().GetPendingJobExecutions(ctx, jobs.GetPendingJobExecutionsRequest{ThingName: thing})
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newJobsDescribeCmd(flags *globalFlags) *cobra.Command {
	var (
		executionNumber int64
		withDocument    bool
	)

	cmd := &cobra.Command{
		Use:   "describe <job-id>",
		Short: "Describe one job execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := jobs.DescribeJobExecutionRequest{JobID: args[0], IncludeJobDocument: &withDocument}
			if cmd.Flags().Changed("execution") {
				req.ExecutionNumber = &executionNumber
			}

			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				req.ThingName = thing
				resp, err := a.jobs().DescribeJobExecution(ctx, req)
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().Int64Var(&executionNumber, "execution", 0, "execution number (latest when omitted)")
	cmd.Flags().BoolVar(&withDocument, "document", true, "include the job document")
	return cmd
}

func newJobsStartNextCmd(flags *globalFlags) *cobra.Command {
	var (
		stepTimeout int64
		details     []string
	)

	cmd := &cobra.Command{
		Use:   "start-next",
		Short: "Start the next pending job execution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusDetails, err := parseKeyValues(details)
			if err != nil {
				return err
			}
			req := jobs.StartNextPendingJobExecutionRequest{StatusDetails: statusDetails}
			if cmd.Flags().Changed("step-timeout") {
				req.StepTimeoutInMinutes = &stepTimeout
			}

			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				req.ThingName = thing
				resp, err := a.jobs().StartNextPendingJobExecution(ctx, req)
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().Int64Var(&stepTimeout, "step-timeout", 0, "minutes before the execution times out")
	cmd.Flags().StringArrayVar(&details, "detail", nil, "status detail as key=value (repeatable)")
	return cmd
}

func newJobsUpdateCmd(flags *globalFlags) *cobra.Command {
	var (
		status          string
		details         []string
		expectedVersion int64
	)

	cmd := &cobra.Command{
		Use:   "update <job-id>",
		Short: "Report progress or the result of a job execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statusDetails, err := parseKeyValues(details)
			if err != nil {
				return err
			}
			req := jobs.UpdateJobExecutionRequest{
				JobID:         args[0],
				Status:        jobs.JobStatus(strings.ToUpper(status)),
				StatusDetails: statusDetails,
			}
			if cmd.Flags().Changed("expected-version") {
				req.ExpectedVersion = &expectedVersion
			}

			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				req.ThingName = thing
				resp, err := a.jobs().UpdateJobExecution(ctx, req)
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", fmt.Sprintf("new status (%s, %s, %s or %s)",
		jobs.JobStatusInProgress, jobs.JobStatusFailed, jobs.JobStatusSucceeded, jobs.JobStatusRejected))
	cmd.Flags().StringArrayVar(&details, "detail", nil, "status detail as key=value (repeatable)")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "expected execution version")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newJobsWatchCmd(flags *globalFlags) *cobra.Command {
	var next bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print job execution changes until interrupted",
		Long: `Watch prints the pending execution lists whenever they change. With
--next it prints the next execution to run instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				out := &lockedWriter{w: cmd.OutOrStdout()}
				if next {
					return watchNextJob(ctx, a, out, thing)
				}
				return watchJobExecutions(ctx, a, out, thing)
			})
		},
	}

	cmd.Flags().BoolVar(&next, "next", false, "watch the next pending execution")
	return cmd
}

func watchJobExecutions(ctx context.Context, a *app, out *lockedWriter, thing string) error {
	client := a.jobs()
	create := func(opts servicemodel.StreamOptions[jobs.JobExecutionsChangedEvent]) (*servicemodel.StreamingOperation[jobs.JobExecutionsChangedEvent], error) {
		return client.CreateJobExecutionsChangedStream(jobs.JobExecutionsChangedSubscriptionRequest{ThingName: thing}, opts)
	}
	return watchStream(ctx, out, a.log, "job executions", create)
}

func watchNextJob(ctx context.Context, a *app, out *lockedWriter, thing string) error {
	client := a.jobs()
	create := func(opts servicemodel.StreamOptions[jobs.NextJobExecutionChangedEvent]) (*servicemodel.StreamingOperation[jobs.NextJobExecutionChangedEvent], error) {
		return client.CreateNextJobExecutionChangedStream(jobs.NextJobExecutionChangedSubscriptionRequest{ThingName: thing}, opts)
	}
	return watchStream(ctx, out, a.log, "next job", create)
}
