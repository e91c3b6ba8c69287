// Package bootstrap wires a speakerbind App from a loaded config: logger,
// telemetry, the embedding provider (through the provider registry), the
// embedding cache, artifact storage and the job runner.
//
// One-shot use from the CLI:
//
//	app, err := bootstrap.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := app.Runner.Run(ctx, req)
//	    return err
//	})
//
// Shutdown closes what New opened in reverse order.
package bootstrap
