// Package gateway provides a reusable CI events gateway that can be embedded into other Go applications.
//
// # Overview
//
// The gateway ingests CI/CD provider webhook notifications, retains a bounded
// recent history of normalized workflow events in memory, and answers
// analysis queries over them: recent events, success rates and duration
// percentiles, deployment summaries, recurring-failure troubleshooting, and
// PR template suggestions.
//
// # Basic Usage
//
// Create a gateway programmatically:
//
//	cfg := &gateway.Config{
//		Server: gateway.ServerConfig{
//			Port:         8080,
//			ReadTimeout:  30 * time.Second,
//			WriteTimeout: 30 * time.Second,
//		},
//		Auth: gateway.AuthConfig{
//			APIKeys: []gateway.APIKey{
//				{Name: "my-app", Key: "secret-key-here"},
//			},
//		},
//		Webhook: gateway.WebhookConfig{
//			Secret: "webhook-shared-secret",
//		},
//		Retention: gateway.RetentionConfig{
//			MaxEvents: 500,
//			MaxAge:    30 * 24 * time.Hour,
//		},
//		Logging: gateway.LoggingConfig{
//			Level:  "info",
//			Format: "json",
//		},
//	}
//
//	gw, err := gateway.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := gw.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Using with Existing HTTP Server
//
// Integrate the gateway into an existing HTTP server:
//
//	gw, err := gateway.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Mount the gateway under a specific path
//	http.Handle("/ci/", http.StripPrefix("/ci", gw.Handler()))
//
//	// Add your own routes
//	http.HandleFunc("/custom", myHandler)
//
//	http.ListenAndServe(":8080", nil)
//
// # File-based Configuration
//
// Load configuration from a yaml file (environment variables in the file are
// expanded):
//
//	gw, err := gateway.NewFromFile("configs/gateway.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := gw.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// # Direct Service Access
//
// Access the service layer directly for programmatic control:
//
//	gw, err := gateway.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	svc := gw.Service()
//
//	// Ingest an event programmatically
//	event, err := svc.Ingest(ctx, "", payload)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Query the derived analysis
//	analysis, err := svc.AnalyzeCIResults(ctx, store.Filter{Repo: "acme/widget"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("completed runs: %d\n", analysis.CompletedRuns)
package gateway
