// Package logx configures lookaway's structured logging.
//
// Components log through logx.Logger, a small value type over zerolog that:
//   - renders short, readable console lines (short timestamp + file:line caller)
//   - writes JSON lines when the file sink is enabled
//   - optionally forwards WARN+ records to the reminder bot chat (rate limited)
//
// A Service owns the sinks and can be re-applied on config reload; loggers
// derived from it follow the new configuration without being rebuilt.
package logx
