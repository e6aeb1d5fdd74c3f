package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/api"
	"github.com/deevus/carbon-tui/internal/validate"
)

// maxVehiclePages bounds the walk over an owner's vehicles.
const maxVehiclePages = 50

const vehiclePageSize = 100

func vehicleCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vehicle",
		Short: "Manage the owner's electric vehicles",
	}
	cmd.AddCommand(vehicleListCmd(o), vehicleAddCmd(o))
	return cmd
}

// ownerVehicles fetches every vehicle registered to ownerID.
func ownerVehicles(ctx context.Context, svc *internal.Services, ownerID string) ([]api.Vehicle, error) {
	var all []api.Vehicle
	for page := 1; page <= maxVehiclePages; page++ {
		res, err := svc.Vehicles.List(ctx, ownerID, api.ListParams{Page: page, Entry: vehiclePageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if page >= res.TotalPages || len(res.Items) == 0 {
			break
		}
	}
	return all, nil
}

func vehicleListCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered vehicles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, svc, closer, err := o.services()
			if err != nil {
				return err
			}
			defer closer.Close()

			vehicles, err := ownerVehicles(commandContext(cmd), svc, prof.UserID)
			if err != nil {
				return friendly(err)
			}
			if len(vehicles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Chưa có phương tiện nào.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVIN\tBIỂN SỐ\tLOẠI XE")
			for _, v := range vehicles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.VIN, v.LicensePlate, v.VehicleTypeID)
			}
			return w.Flush()
		},
	}
}

func vehicleAddCmd(o *options) *cobra.Command {
	var veh api.Vehicle
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a vehicle",
		Long: "Registers a vehicle for the signed-in owner. The VIN and licence plate\n" +
			"are checked against the owner's existing vehicles before submitting.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, svc, closer, err := o.services()
			if err != nil {
				return err
			}
			defer closer.Close()
			ctx := commandContext(cmd)

			existing, err := ownerVehicles(ctx, svc, prof.UserID)
			if err != nil {
				return friendly(err)
			}
			veh.OwnerID = prof.UserID
			veh.VIN = strings.ToUpper(strings.TrimSpace(veh.VIN))
			veh.LicensePlate = strings.TrimSpace(veh.LicensePlate)
			if err := validate.New(o.now).Vehicle(veh, existing); err != nil {
				return err
			}

			created, err := svc.Vehicles.Create(ctx, veh)
			if err != nil {
				return friendly(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Đã đăng ký phương tiện %s (%s).\n", created.ID, created.LicensePlate)
			return nil
		},
	}
	cmd.Flags().StringVar(&veh.VIN, "vin", "", "17-character vehicle identification number")
	cmd.Flags().StringVar(&veh.LicensePlate, "plate", "", "licence plate")
	cmd.Flags().StringVar(&veh.VehicleTypeID, "type", "", "vehicle type id")
	return cmd
}
