package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scanlink/internal/client"
	"scanlink/internal/config"
	"scanlink/internal/history"
	"scanlink/internal/lookup"
)

func newCompanionCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companion",
		Short: "Run a companion display with edit commands",
		Long: `Runs a companion client: it mirrors the capture station's session
(current article, photo, login state) and, while an operator is logged in,
accepts edits that are pushed back through the relay and the product store.

Commands on stdin:
  name <text>    rename the current article (broadcast via save_name)
  qty <n>        set the quantity for the next save
  shop <id>      set the shop for the next save
  photo <path>   capture a photo file and upload it
  save           persist name/qty/shop to the product store
  shops          list the configured shops
  logout         end the operator session
  quit           exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			api := lookup.NewClient(cfg.APIBaseURL)
			ui := client.NewConsoleUI(os.Stdout)
			rt := client.New(client.Config{
				RelayURL:     cfg.RelayURL,
				API:          api,
				UI:           ui,
				PollInterval: cfg.PollInterval,
			})
			go rt.Run(cmd.Context())

			log := history.NewLog(cfg.HistoryPath)
			qty := 1.0
			var shopID *int64

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				verb, arg, _ := strings.Cut(line, " ")
				arg = strings.TrimSpace(arg)

				switch verb {
				case "":
					continue
				case "quit", "exit":
					return nil
				case "name":
					if err := rt.SaveName(arg); err != nil {
						fmt.Println("rejected:", err)
					}
				case "qty":
					n, err := strconv.ParseFloat(arg, 64)
					if err != nil || n <= 0 {
						fmt.Println("rejected: quantity must be greater than zero")
						continue
					}
					qty = n
				case "shop":
					id, err := strconv.ParseInt(arg, 10, 64)
					if err != nil {
						fmt.Println("rejected: shop id must be numeric")
						continue
					}
					shopID = &id
				case "photo":
					if err := rt.CapturePhoto(arg); err != nil {
						fmt.Println("rejected:", err)
					}
				case "save":
					article := rt.Store().Article()
					if err := rt.SaveItem(cmd.Context(), article.Name, qty, shopID); err != nil {
						fmt.Println("rejected:", err)
						continue
					}
					login := rt.Store().Login()
					rec := history.Record{
						EAN:        article.EAN,
						Name:       article.Name,
						Qty:        qty,
						ShopID:     shopID,
						UserID:     login.UserID,
						UserName:   login.UserName,
						CapturedAt: time.Now().Unix(),
					}
					if err := log.Append(rec); err != nil {
						fmt.Println("history not recorded:", err)
					}
					qty = 1.0
					fmt.Println("saved", article.EAN)
				case "shops":
					shops, err := api.Shops(cmd.Context())
					if err != nil {
						fmt.Println("shops unavailable:", err)
						continue
					}
					for _, s := range shops {
						fmt.Printf("  %d  %s\n", s.ID, s.Name)
					}
				case "logout":
					if err := api.Logout(cmd.Context()); err != nil {
						fmt.Println("logout failed:", err)
					}
				default:
					fmt.Println("unknown command:", verb)
				}
			}
			return scanner.Err()
		},
	}

	return cmd
}
