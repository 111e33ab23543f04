package config

const (
	defaultDataDir     = "~/.local/share/inkwell"
	defaultLogDir      = "~/.local/share/inkwell/logs"
	defaultRecordsPath = "~/.local/share/inkwell/records.db"
	defaultQueuePath   = "~/.local/share/inkwell/queue.db"
	defaultAPIBind     = "127.0.0.1:7814"

	defaultResultsPrefix = "results/"
	defaultStorageRegion = "us-east-1"

	defaultMaxSizeBytes   = int64(256) << 20
	defaultHeavySizeBytes = int64(10) << 20
	defaultHeavyPageCount = 25

	defaultDispatchMaxAttempts    = 3
	defaultDispatchLeaseSeconds   = 300
	defaultDispatchRetryDelay     = 60
	defaultDispatchEnqueueRetries = 4

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 15
	defaultHeartbeatTimeout   = 120

	defaultSweepIntervalMinutes = 30
	defaultFastSLAMinutes       = 20
	defaultHeavySLAMinutes      = 240
	defaultReconcileMaxRetries  = 2

	defaultRetentionDays        = 30
	defaultPurgeIntervalMinutes = 60

	defaultFastEndpoint      = "http://127.0.0.1:9090"
	defaultBatchEndpoint     = "http://127.0.0.1:9091"
	defaultExtractionTimeout = 120
	defaultExtractionPoll    = 30

	defaultNotifyRequestTimeout = 10

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Database: Database{
			RecordsPath: defaultRecordsPath,
			QueuePath:   defaultQueuePath,
		},
		Storage: Storage{
			ResultsPrefix: defaultResultsPrefix,
			Region:        defaultStorageRegion,
		},
		Intake: Intake{
			MaxSizeBytes:   defaultMaxSizeBytes,
			HeavySizeBytes: defaultHeavySizeBytes,
			HeavyPageCount: defaultHeavyPageCount,
			AllowedTypes: []string{
				"application/pdf",
				"image/png",
				"image/jpeg",
				"image/tiff",
			},
		},
		Dispatch: Dispatch{
			MaxAttempts:       defaultDispatchMaxAttempts,
			LeaseSeconds:      defaultDispatchLeaseSeconds,
			RetryDelaySeconds: defaultDispatchRetryDelay,
			EnqueueRetries:    defaultDispatchEnqueueRetries,
		},
		Workers: Workers{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Reconcile: Reconcile{
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
			FastSLAMinutes:       defaultFastSLAMinutes,
			HeavySLAMinutes:      defaultHeavySLAMinutes,
			MaxRetries:           defaultReconcileMaxRetries,
		},
		Recycle: Recycle{
			RetentionDays:        defaultRetentionDays,
			PurgeIntervalMinutes: defaultPurgeIntervalMinutes,
		},
		Extraction: Extraction{
			FastEndpoint:   defaultFastEndpoint,
			BatchEndpoint:  defaultBatchEndpoint,
			RequestTimeout: defaultExtractionTimeout,
			PollInterval:   defaultExtractionPoll,
			Languages:      []string{"en"},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Processed:      true,
			Failures:       true,
			DeadLetters:    true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
