// Package notifications delivers pipeline events via ntfy push messages.
//
// The default implementation publishes to the topic configured in config.toml
// and gracefully degrades to a no-op when no topic is set. Individual event
// families (job completion, job failure, errors) honor their own config
// toggles so operators can mute the noisy ones without losing the rest.
//
// All workflow code depends only on the Service interface, so alternative
// transports can be swapped in without touching the manager.
package notifications
