package config

import (
	"os"
	"strconv"
)

// Config is the full environment surface shared by the server and the CLI
// tools. Every knob has a default; each one has a single effect on
// filtering, matching, or output fidelity.
type Config struct {
	Port          string
	MaxUploadSize int64
	UploadDir     string
	OutputDir     string

	DBType         string
	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	DBPath         string
	MigrationsPath string

	DetectorURL  string
	DetectorMode string

	// MatchThreshold is the maximum Euclidean distance between a new
	// embedding and a person's reference embeddings for a match.
	MatchThreshold float64
	// MinFaceAreaRatio rejects boxes smaller than this fraction of the
	// frame area.
	MinFaceAreaRatio float64
	// ConfidenceThreshold rejects detections the backend scored below it.
	ConfidenceThreshold float64
	// DetectionUpsample is passed through to the detection backend; higher
	// values find smaller faces at higher cost.
	DetectionUpsample int
	// FrameSampleRate processes every Nth frame; 1 processes all frames.
	FrameSampleRate int
	// OutputScale shrinks annotated output frames relative to the source.
	OutputScale float64
	// SnapshotFormat is the evidence image encoding, jpg or png.
	SnapshotFormat string
	// MaxEmbeddingsPerPerson caps reference embeddings per identity.
	MaxEmbeddingsPerPerson int
}

// Subdirectories of OutputDir for scan artifacts.
const (
	AnnotatedDir = "videos"
	ReportsDir   = "reports"
	SnapshotsDir = "snapshots"
)

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		MaxUploadSize: getEnvInt64("MAX_UPLOAD_SIZE", 104857600),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		OutputDir:     getEnv("OUTPUT_DIR", "./outputs"),

		DBType:         getEnv("DB_TYPE", "sqlite"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnvInt("DB_PORT", 5432),
		DBUser:         getEnv("DB_USER", "facetrace"),
		DBPassword:     getEnv("DB_PASSWORD", "facetrace_dev"),
		DBName:         getEnv("DB_NAME", "facetrace"),
		DBPath:         getEnv("DB_PATH", "./facetrace.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		DetectorURL:  getEnv("DETECTOR_URL", "http://localhost:8090"),
		DetectorMode: getEnv("DETECTOR_MODE", "embedding"),

		MatchThreshold:         getEnvFloat("MATCH_THRESHOLD", 0.5),
		MinFaceAreaRatio:       getEnvFloat("MIN_FACE_AREA_RATIO", 0.0008),
		ConfidenceThreshold:    getEnvFloat("CONFIDENCE_THRESHOLD", 0),
		DetectionUpsample:      getEnvInt("DETECTION_UPSAMPLE", 2),
		FrameSampleRate:        getEnvInt("FRAME_SAMPLE_RATE", 1),
		OutputScale:            getEnvFloat("OUTPUT_SCALE", 0.7),
		SnapshotFormat:         getEnv("SNAPSHOT_FORMAT", "jpg"),
		MaxEmbeddingsPerPerson: getEnvInt("MAX_EMBEDDINGS_PER_PERSON", 10),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
