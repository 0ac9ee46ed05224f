package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rainet_connections_active",
		Help: "Open websocket connections",
	})
	PacketsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rainet_packets_total",
		Help: "Packets by type and direction",
	}, []string{"type", "direction"})
	GamesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rainet_games_active",
		Help: "Sessions in the lobby registry",
	})
	GamesFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rainet_games_finished_total",
		Help: "Finished games by reason",
	}, []string{"reason"})
	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rainet_logins_total",
		Help: "Login attempts by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(ConnectionsActive, PacketsTotal, GamesActive, GamesFinished, LoginsTotal)
}
