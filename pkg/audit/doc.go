/*
Package audit defines the event sink interface a play reports to, and
three concrete sinks: log (writes structured zerolog events), exec
(invokes an external command per event) and webhook (POSTs JSON to a
configured URL). A sink's ignoreErrors flag decides whether a delivery
failure is swallowed (logged and recorded as a metric) or aborts the play.
*/
package audit
