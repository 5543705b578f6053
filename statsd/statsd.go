// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so a future migration only needs to edit
// this single file. The client is a NoOp until Init succeeds, so metric
// emission is always safe to call.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitRunStat emits the duration of one Run dispatch, tagged by function
// kind.
func EmitRunStat(start time.Time, kind string) {
	duration := time.Since(start)
	err := Client().Timing("run", duration, []string{kind}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit run stat: %v", err)
	}
}

// EmitEntityGauge reports the live entity count.
func EmitEntityGauge(count int) {
	err := Client().Gauge("entities.alive", float64(count), nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit entity gauge: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics.
		ddstatsd.WithNamespace("arrow"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "")
	}
	client = newClient
	return nil
}
