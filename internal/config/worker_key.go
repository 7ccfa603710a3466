package config

type WorkerKeyStruct struct {
	ExportAttemptsQueue string
	EventsExchange      string
}

var WorkerKey = &WorkerKeyStruct{
	ExportAttemptsQueue: "export_attempts_queue",
	EventsExchange:      "practice.events",
}
