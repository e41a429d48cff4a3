package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/example/salad-order-service/internal/adapter/natsstan"
	"github.com/example/salad-order-service/internal/config"
	"github.com/example/salad-order-service/internal/domain"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	app := &cli.App{
		Name:      "publisher",
		Usage:     "send an order status update to the status subject",
		ArgsUsage: "(reads {\"order_id\",\"status\"} JSON from stdin unless flags are given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "order", Usage: "order id"},
			&cli.StringFlag{Name: "status", Usage: "new order status"},
			&cli.StringFlag{Name: "client-id", Value: "salad-publisher", EnvVars: []string{"STAN_PUB_ID"}},
		},
		Action: publish,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("publish failed")
	}
}

func publish(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	u, err := readUpdate(c.String("order"), c.String("status"), os.Stdin)
	if err != nil {
		return err
	}
	b, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "marshal")
	}

	sc, err := natsstan.Connect(cfg.Events.ClusterID, c.String("client-id"), cfg.Events.NatsURL)
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := sc.Publish(cfg.Events.StatusSubject, b); err != nil {
		return errors.Wrap(err, "publish")
	}
	log.WithFields(log.Fields{"subject": cfg.Events.StatusSubject, "order_id": u.OrderID, "status": u.Status}).
		Info("status update published")
	return nil
}

// readUpdate takes the update from flags, or from JSON on r when no order flag is set.
func readUpdate(orderID, status string, r io.Reader) (domain.StatusUpdate, error) {
	u := domain.StatusUpdate{OrderID: orderID, Status: domain.Status(status)}
	if orderID == "" {
		if err := json.NewDecoder(r).Decode(&u); err != nil {
			return domain.StatusUpdate{}, errors.Wrap(err, "read json from stdin")
		}
	}
	if u.OrderID == "" || !u.Status.Valid() {
		return domain.StatusUpdate{}, errors.Errorf("order id and a known status are required, got %q/%q", u.OrderID, u.Status)
	}
	return u, nil
}
