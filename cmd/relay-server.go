package cmd

import (
	"log/slog"
	"os"

	"github.com/curaious/voicerelay/internal/api"
	"github.com/curaious/voicerelay/internal/config"
	"github.com/curaious/voicerelay/internal/metrics"
	"github.com/curaious/voicerelay/internal/telemetry"
	"github.com/curaious/voicerelay/pkg/gateway"
	"github.com/curaious/voicerelay/pkg/gateway/providers/openai"
	"github.com/curaious/voicerelay/pkg/llm"
	"github.com/spf13/cobra"
)

var relayPort int

var relayServerCmd = &cobra.Command{
	Use:   "relay-server",
	Short: "Start the relay server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()
		if cmd.Flags().Changed("port") {
			conf.PORT = relayPort
		}

		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: conf.LOG_LEVEL})))

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT, conf.OTEL_TRACES_FILE)
		defer shutdownTelemetry()

		collector := metrics.NewCollector(nil)

		client := openai.NewClient(&openai.ClientOptions{
			BaseURL:     conf.OPENAI_BASE_URL,
			ApiKey:      conf.OPENAI_API_KEY,
			ChatModel:   conf.OPENAI_CHAT_MODEL,
			SpeechModel: conf.OPENAI_TTS_MODEL,
			Voice:       conf.OPENAI_TTS_VOICE,
		})
		relay := gateway.NewRelayGateway(llm.ProviderNameOpenAI, client, collector)

		s := api.New(conf, relay, collector)
		s.Start()
	},
}

// Register the "relay-server" command
func init() {
	relayServerCmd.Flags().IntVar(&relayPort, "port", config.DefaultPort, "listen port, overrides PORT")
	rootCmd.AddCommand(relayServerCmd)
}
