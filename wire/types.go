package wire

// Notification and lifecycle event discriminators delivered by the controller.
const (
	TypeStartEvent                = "wf_api_start_event"
	TypeStopEvent                 = "wf_api_stop_event"
	TypePromptEvent               = "wf_api_prompt_event"
	TypeButtonEvent               = "wf_api_button_event"
	TypeNotificationEvent         = "wf_api_notification_event"
	TypeTimerEvent                = "wf_api_timer_event"
	TypeTimerFiredEvent           = "wf_api_timer_fired_event"
	TypeSpeechEvent               = "wf_api_speech_event"
	TypeProgressEvent             = "wf_api_progress_event"
	TypePlayInboxMessageEvent     = "wf_api_play_inbox_message_event"
	TypeSMSEvent                  = "wf_api_sms_event"
	TypeIncidentEvent             = "wf_api_incident_event"
	TypeInteractionLifecycleEvent = "wf_api_interaction_lifecycle_event"
	TypeResumeEvent               = "wf_api_resume_event"
	TypeCallConnectedEvent        = "wf_api_call_connected_event"
	TypeCallDisconnectedEvent     = "wf_api_call_disconnected_event"
	TypeCallFailedEvent           = "wf_api_call_failed_event"
	TypeCallReceivedEvent         = "wf_api_call_received_event"
	TypeCallRingingEvent          = "wf_api_call_ringing_event"
	TypeCallProgressingEvent      = "wf_api_call_progressing_event"
	TypeCallStartRequestEvent     = "wf_api_call_start_request_event"
)

// Request discriminators issued by workflow code.
const (
	TypeErrorResponse = "wf_api_error_response"

	TypeStartInteractionRequest = "wf_api_start_interaction_request"
	TypeEndInteractionRequest   = "wf_api_end_interaction_request"
	TypeSayRequest              = "wf_api_say_request"
	TypePlayRequest             = "wf_api_play_request"
	TypeListenRequest           = "wf_api_listen_request"
	TypeStopPlaybackRequest     = "wf_api_stop_playback_request"
	TypeGetVarRequest           = "wf_api_get_var_request"
	TypeSetVarRequest           = "wf_api_set_var_request"
	TypeUnsetVarRequest         = "wf_api_unset_var_request"
	TypeNotificationRequest     = "wf_api_notification_request"
	TypeSetChannelRequest       = "wf_api_set_channel_request"
	TypeGetDeviceInfoRequest    = "wf_api_get_device_info_request"
	TypeSetDeviceInfoRequest    = "wf_api_set_device_info_request"
	TypeSetDeviceModeRequest    = "wf_api_set_device_mode_request"
	TypeSetLEDRequest           = "wf_api_set_led_request"
	TypeVibrateRequest          = "wf_api_vibrate_request"
	TypeStartTimerRequest       = "wf_api_start_timer_request"
	TypeStopTimerRequest        = "wf_api_stop_timer_request"
	TypeSetTimerRequest         = "wf_api_set_timer_request"
	TypeClearTimerRequest       = "wf_api_clear_timer_request"
	TypeCreateIncidentRequest   = "wf_api_create_incident_request"
	TypeResolveIncidentRequest  = "wf_api_resolve_incident_request"
	TypeTerminateRequest        = "wf_api_terminate_request"
	TypeLogAnalyticsRequest     = "wf_api_log_analytics_event_request"
)
