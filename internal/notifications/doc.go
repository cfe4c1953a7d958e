// Package notifications sends push notifications about job outcomes through
// ntfy. Without a configured topic every notification is a noop.
package notifications
