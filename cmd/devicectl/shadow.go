package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
	"github.com/nerrad567/iot-device-sdk/internal/services/shadow"
)

func newShadowCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shadow",
		Short: "Read, change and watch device shadows",
		Long: `Shadow commands act on the classic shadow unless --shadow names a
named shadow.

Examples:
  devicectl shadow get
  devicectl shadow get --shadow config
  devicectl shadow update --reported '{"temperature":21.5}'
  devicectl shadow update --desired null
  devicectl shadow watch --documents`,
	}

	var shadowName string
	cmd.PersistentFlags().StringVarP(&shadowName, "shadow", "s", "", "named shadow (empty for the classic shadow)")

	cmd.AddCommand(newShadowGetCmd(flags, &shadowName))
	cmd.AddCommand(newShadowUpdateCmd(flags, &shadowName))
	cmd.AddCommand(newShadowDeleteCmd(flags, &shadowName))
	cmd.AddCommand(newShadowWatchCmd(flags, &shadowName))
	return cmd
}

func newShadowGetCmd(flags *globalFlags, shadowName *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the shadow document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				client := a.shadow()

				var (
					resp *shadow.GetShadowResponse
					err  error
				)
				if *shadowName == "" {
					resp, err = client.GetShadow(ctx, shadow.GetShadowRequest{ThingName: thing})
				} else {
					resp, err = client.GetNamedShadow(ctx, shadow.GetNamedShadowRequest{ThingName: thing, ShadowName: *shadowName})
				}
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
}

func newShadowUpdateCmd(flags *globalFlags, shadowName *string) *cobra.Command {
	var (
		desired  string
		reported string
		version  int64
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the desired or reported state",
		Long: `Update merges the given JSON objects into the shadow. Pass null to
clear a whole section; a null attribute inside an object removes that
attribute.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := buildShadowState(desired, reported)
			if err != nil {
				return err
			}
			var expected *int64
			if cmd.Flags().Changed("version") {
				expected = &version
			}

			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				client := a.shadow()

				var resp *shadow.UpdateShadowResponse
				if *shadowName == "" {
					resp, err = client.UpdateShadow(ctx, shadow.UpdateShadowRequest{
						ThingName: thing, State: state, Version: expected,
					})
				} else {
					resp, err = client.UpdateNamedShadow(ctx, shadow.UpdateNamedShadowRequest{
						ThingName: thing, ShadowName: *shadowName, State: state, Version: expected,
					})
				}
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().StringVar(&desired, "desired", "", "desired state as a JSON object, or null")
	cmd.Flags().StringVar(&reported, "reported", "", "reported state as a JSON object, or null")
	cmd.Flags().Int64Var(&version, "version", 0, "expected shadow version")
	return cmd
}

// buildShadowState combines the --desired and --reported flags. At least
// one must be given.
func buildShadowState(desired, reported string) (*shadow.ShadowState, error) {
	desiredDoc, desiredNull, err := parseDocument("desired", desired)
	if err != nil {
		return nil, err
	}
	reportedDoc, reportedNull, err := parseDocument("reported", reported)
	if err != nil {
		return nil, err
	}
	if desiredDoc == nil && !desiredNull && reportedDoc == nil && !reportedNull {
		return nil, errors.New("at least one of --desired or --reported is required")
	}
	return &shadow.ShadowState{
		Desired:            desiredDoc,
		DesiredIsNullable:  desiredNull,
		Reported:           reportedDoc,
		ReportedIsNullable: reportedNull,
	}, nil
}

func newShadowDeleteCmd(flags *globalFlags, shadowName *string) *cobra.Command {
	var version int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the shadow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var expected *int64
			if cmd.Flags().Changed("version") {
				expected = &version
			}

			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				client := a.shadow()

				var (
					resp *shadow.DeleteShadowResponse
					err  error
				)
				if *shadowName == "" {
					resp, err = client.DeleteShadow(ctx, shadow.DeleteShadowRequest{ThingName: thing, Version: expected})
				} else {
					resp, err = client.DeleteNamedShadow(ctx, shadow.DeleteNamedShadowRequest{
						ThingName: thing, ShadowName: *shadowName, Version: expected,
					})
				}
				if err != nil {
					return describeServiceError(cmd, err)
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}

	cmd.Flags().Int64Var(&version, "version", 0, "expected shadow version")
	return cmd
}

func newShadowWatchCmd(flags *globalFlags, shadowName *string) *cobra.Command {
	var documents bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print shadow deltas until interrupted",
		Long: `Watch prints each delta document as it arrives. With --documents it
prints the full before/after documents of every accepted update instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, flags, true, func(ctx context.Context, a *app, thing string) error {
				out := &lockedWriter{w: cmd.OutOrStdout()}
				if documents {
					return watchShadowDocuments(ctx, a, out, thing, *shadowName)
				}
				return watchShadowDeltas(ctx, a, out, thing, *shadowName)
			})
		},
	}

	cmd.Flags().BoolVar(&documents, "documents", false, "watch full update documents instead of deltas")
	return cmd
}

func watchShadowDeltas(ctx context.Context, a *app, out *lockedWriter, thing, shadowName string) error {
	client := a.shadow()
	create := func(opts servicemodel.StreamOptions[shadow.ShadowDeltaUpdatedEvent]) (*servicemodel.StreamingOperation[shadow.ShadowDeltaUpdatedEvent], error) {
		if shadowName == "" {
			return client.CreateShadowDeltaUpdatedStream(shadow.ShadowDeltaUpdatedSubscriptionRequest{ThingName: thing}, opts)
		}
		return client.CreateNamedShadowDeltaUpdatedStream(shadow.NamedShadowDeltaUpdatedSubscriptionRequest{
			ThingName: thing, ShadowName: shadowName,
		}, opts)
	}
	return watchStream(ctx, out, a.log, "shadow delta", create)
}

func watchShadowDocuments(ctx context.Context, a *app, out *lockedWriter, thing, shadowName string) error {
	client := a.shadow()
	create := func(opts servicemodel.StreamOptions[shadow.ShadowUpdatedEvent]) (*servicemodel.StreamingOperation[shadow.ShadowUpdatedEvent], error) {
		if shadowName == "" {
			return client.CreateShadowUpdatedStream(shadow.ShadowUpdatedSubscriptionRequest{ThingName: thing}, opts)
		}
		return client.CreateNamedShadowUpdatedStream(shadow.NamedShadowUpdatedSubscriptionRequest{
			ThingName: thing, ShadowName: shadowName,
		}, opts)
	}
	return watchStream(ctx, out, a.log, "shadow documents", create)
}
