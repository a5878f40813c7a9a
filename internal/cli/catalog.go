package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/loyalty-rewards/internal/locator"
	"github.com/iliyamo/loyalty-rewards/internal/model"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// dealView adds the ending-soon flag shown on deal cards.
type dealView struct {
	model.Deal
	EndingSoon bool `json:"ending_soon"`
}

func NewDealsCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "deals",
		Short: "List active deals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deals, err := opts.gateway().Deals(cmd.Context(), strings.TrimSpace(category))
			if err != nil {
				return err
			}
			now := time.Now()
			views := make([]dealView, 0, len(deals))
			for _, d := range deals {
				views = append(views, dealView{Deal: d, EndingSoon: d.EndingSoon(now)})
			}
			return opts.output(cmd).Success(views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "No deals right now.")
					return
				}
				tw := table(w)
				fmt.Fprintln(tw, "DEAL\tDISCOUNT\tCATEGORY\tUNTIL\t")
				for _, d := range views {
					until := d.ValidUntil.Format("2006-01-02")
					if d.EndingSoon {
						until += " (ending soon)"
					}
					title := d.Title
					if d.IsMemberOnly {
						title += " [members]"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", title, d.DiscountValue, d.Category, until)
				}
				tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", `only deals in this category ("all" for every deal)`)

	return cmd
}

func NewRewardsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List rewards you can redeem points for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rewards, err := opts.gateway().Rewards(cmd.Context())
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(rewards, func(w io.Writer) {
				if len(rewards) == 0 {
					fmt.Fprintln(w, "No rewards available.")
					return
				}
				tw := table(w)
				fmt.Fprintln(tw, "ID\tREWARD\tPOINTS\tMIN TIER\tSTOCK\t")
				for _, r := range rewards {
					minTier, stock := "-", "unlimited"
					if r.MinTier != nil {
						minTier = r.MinTier.Label()
					}
					if r.StockQuantity != nil {
						stock = fmt.Sprint(*r.StockQuantity)
					}
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n", r.ID, r.Title, r.PointsCost, minTier, stock)
				}
				tw.Flush()
			})
		},
	}
}

func NewRedeemCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "redeem <reward-id>",
		Short: "Spend points on a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.signedIn(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			red, err := a.gw.Redeem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return opts.output(cmd).Success(red, func(w io.Writer) {
				fmt.Fprintf(w, "Redeemed for %d points.\n", red.PointsSpent)
				fmt.Fprintf(w, "Show this code at the till: %s\n", red.RedemptionCode)
				fmt.Fprintf(w, "Valid until %s\n", red.ExpiresAt.Local().Format("2006-01-02 15:04"))
			})
		},
	}
}

// StoresOptions holds flags for the stores command.
type StoresOptions struct {
	*RootOptions
	Lat, Lng   float64
	City       string
	Search     string
	ListCities bool
}

func NewStoresCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoresOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stores",
		Short: "Find stores, nearest first when a location is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hasLat, hasLng := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lng")
			if hasLat != hasLng {
				return usageError("--lat and --lng must be given together")
			}
			var origin *locator.Point
			if hasLat {
				if opts.Lat < -90 || opts.Lat > 90 || opts.Lng < -180 || opts.Lng > 180 {
					return usageError("coordinates out of range")
				}
				origin = &locator.Point{Lat: opts.Lat, Lng: opts.Lng}
			}

			stores, err := opts.gateway().Stores(cmd.Context())
			if err != nil {
				return err
			}
			out := opts.output(cmd)

			if opts.ListCities {
				cities := locator.Cities(stores)
				return out.Success(cities, func(w io.Writer) {
					for _, c := range cities {
						fmt.Fprintln(w, c)
					}
				})
			}

			ranked := locator.Rank(origin, locator.Filter(stores, opts.Search, opts.City))
			return out.Success(ranked, func(w io.Writer) {
				if len(ranked) == 0 {
					fmt.Fprintln(w, "No stores match.")
					return
				}
				tw := table(w)
				fmt.Fprintln(tw, "STORE\tCITY\tADDRESS\tDISTANCE\t")
				for _, r := range ranked {
					dist := "-"
					if r.DistanceKM != nil {
						dist = fmt.Sprintf("%.1f km", *r.DistanceKM)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", r.Name, r.City, r.Address, dist)
				}
				tw.Flush()
			})
		},
	}

	cmd.Flags().Float64Var(&opts.Lat, "lat", 0, "your latitude in decimal degrees")
	cmd.Flags().Float64Var(&opts.Lng, "lng", 0, "your longitude in decimal degrees")
	cmd.Flags().StringVar(&opts.City, "city", "", "only stores in this city")
	cmd.Flags().StringVar(&opts.Search, "search", "", "match store name, city or address")
	cmd.Flags().BoolVar(&opts.ListCities, "cities", false, "list the cities that have stores")

	return cmd
}
