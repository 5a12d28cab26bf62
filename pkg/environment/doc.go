// Package environment carries the deployment stage (development, staging,
// production) through configuration, request contexts and log records.
//
//	env := environment.Parse(os.Getenv("APP_ENV"))
//	r.Use(environment.Middleware(env))
//	log := logger.New(
//		logger.WithEnvironment(env, "contentplan"),
//		logger.WithContextExtractors(environment.LoggerExtractor()),
//	)
package environment
