// Package config loads the application configuration.
//
// Values come from defaults declared in struct tags, a .env file and the
// environment, in increasing precedence. Keys are nested by section and map
// to upper-case environment names (source.url is SOURCE_URL,
// notify.telegram.chat_id is NOTIFY_TELEGRAM_CHAT_ID).
//
// Sections: server, log, database, storage, state, source, registry,
// notify and monitor. Each section's Config type lives in the package that
// consumes it.
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
