package registry

// Default returns the built-in vendor catalog. Mapping targets are canonical
// record paths; transform names resolve in the mapping engine.
func Default() *Registry {
	r, err := New(defaultVendors())
	if err != nil {
		// The built-in catalog is a compile-time constant; a defect here is
		// a programming error, not a runtime condition.
		panic(err)
	}
	return r
}

func defaultVendors() []Vendor {
	return []Vendor{
		{
			Name:       "retell",
			AuthMethod: AuthSignatureHeader,
			AuthHeader: "x-retell-signature",
			Events:     []string{EventCallStarted, EventCallEnded, EventCallAnalyzed},
			Rules: []MappingRule{
				{Source: "call.call_id", Target: "call.call_id"},
				{Source: "call.from_number", Target: "call.from"},
				{Source: "call.to_number", Target: "call.to"},
				{Source: "call.direction", Target: "call.direction", Transform: "direction"},
				{Source: "call.start_timestamp", Target: "call.start_time", Transform: "epoch_time"},
				{Source: "call.end_timestamp", Target: "call.end_time", Transform: "epoch_time"},
				{Source: "call.disconnection_reason", Target: "outcomes.objective.status", Transform: "status"},
				{Source: "call.disconnection_reason", Target: "outcomes.objective.disconnect_reason"},
				{Source: "call.transcript", Target: "artifacts.transcript"},
				{Source: "event", Target: "custom.provider_specific.retell.event"},
			},
		},
		{
			Name:       "bland",
			AuthMethod: AuthBearerToken,
			AuthHeader: "Authorization",
			Events:     []string{EventCallEnded, EventPostCallTranscription},
			Rules: []MappingRule{
				{Source: "call_id", Target: "call.call_id"},
				{Source: "from", Target: "call.from"},
				{Source: "to", Target: "call.to"},
				{Source: "call_length", Target: "call.duration_sec", Transform: "int_seconds"},
				{Source: "completed", Target: "outcomes.objective.metrics.task_completion"},
				{Source: "transcript", Target: "artifacts.transcript"},
				{Source: "recording_url", Target: "artifacts.recording_url"},
			},
		},
		{
			Name:   "vapi",
			Events: []string{EventEndOfCallReport, EventStatusUpdate, EventConversationUpdate},
			Rules: []MappingRule{
				{Source: "message.call.id", Target: "call.call_id"},
				{Source: "message.endedReason", Target: "outcomes.objective.status", Transform: "status"},
				{Source: "message.endedReason", Target: "outcomes.objective.disconnect_reason"},
				{Source: "message.artifact.transcript", Target: "artifacts.transcript"},
				{Source: "message.artifact.recording", Target: "artifacts.recording_url"},
			},
		},
		{
			Name:       "elevenlabs",
			AuthMethod: AuthHMACSHA256,
			AuthHeader: "elevenlabs-signature",
			Events:     []string{EventPostCallTranscription, EventPostCallAudio},
			Rules: []MappingRule{
				{Source: "data.conversation_id", Target: "call.call_id"},
				{Source: "data.agent_id", Target: "custom.provider_specific.elevenlabs.agent_id"},
				{Source: "data.transcript", Target: "artifacts.transcript_object"},
				{Source: "data.metadata.start_time_unix_secs", Target: "call.start_time", Transform: "epoch_time"},
				{Source: "data.metadata.call_duration_secs", Target: "call.duration_sec", Transform: "int_seconds"},
			},
		},
		{
			Name:   "openai_realtime",
			Events: []string{EventStatusUpdate, EventConversationUpdate},
			Rules: []MappingRule{
				{Source: "session.id", Target: "call.session_id"},
				{Source: "session.model", Target: "custom.provider_specific.openai_realtime.model"},
				{Source: "item.content.transcript", Target: "artifacts.transcript"},
			},
		},
		{
			Name:       "assistable",
			AuthMethod: AuthAPIKeyHeader,
			AuthHeader: "Authorization",
			Events:     []string{EventCallEnded, EventPostCallTranscription, EventCallAnalyzed},
			Rules: []MappingRule{
				{Source: "call_id", Target: "call.call_id"},
				{Source: "direction", Target: "call.direction", Transform: "direction"},
				{Source: "to", Target: "call.to"},
				{Source: "from", Target: "call.from"},
				{Source: "contact_id", Target: "call.caller_id"},
				{Source: "start_timestamp", Target: "call.start_time", Transform: "epoch_time"},
				{Source: "end_timestamp", Target: "call.end_time", Transform: "epoch_time"},
				{Source: "call_time_seconds", Target: "call.duration_sec", Transform: "int_seconds"},
				{Source: "full_transcript", Target: "artifacts.transcript"},
				{Source: "recording_url", Target: "artifacts.recording_url"},
				{Source: "call_summary", Target: "human_context.summary"},
				{Source: "user_sentiment", Target: "outcomes.user_satisfaction_score", Transform: "sentiment_score"},
				{Source: "call_completion", Target: "outcomes.objective.metrics.task_completion"},
				{Source: "assistant_task_completion", Target: "outcomes.objective.metrics.assistant_success"},
				{Source: "disconnection_reason", Target: "outcomes.objective.status", Transform: "status"},
				{Source: "disconnection_reason", Target: "outcomes.objective.disconnect_reason"},
				{Source: "extractions", Target: "custom.provider_specific.assistable.extractions"},
				{Source: "args", Target: "custom.provider_specific.assistable.call_args"},
				{Source: "metadata", Target: "custom.provider_specific.assistable.metadata"},
				{Source: "call_type", Target: "custom.provider_specific.assistable.call_type"},
			},
		},
	}
}
