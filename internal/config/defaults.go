package config

// Dataset locations published with the restaurant corpus.
const (
	DefaultShopsURL   = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/nNGhXQQi2CIw9JcInMe67Q/Synthetic-Restaurants-Cafes-Bakeries.txt"
	DefaultReviewsURL = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/8R-csw5FyfI1nomsQeniNA/review-user.csv"
	DefaultCatalogURL = "https://cf-courses-data.s3.us.cloud-object-storage.appdomain.cloud/rZLLfu0XtsvS4Jn1mSfngQ/restaurant-item.csv"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kuchikomi/data/db/kuchikomi.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kuchikomi/data/indices/vectors.bin"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 3072
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "gpt-4o-mini"
	}
	if cfg.Vision.Prompt == "" {
		cfg.Vision.Prompt = "Describe the food or dining environment in one short sentence."
	}
	if cfg.Vision.MaxTokens == 0 {
		cfg.Vision.MaxTokens = 50
	}
	if cfg.Vision.FetchTimeoutSecs == 0 {
		cfg.Vision.FetchTimeoutSecs = 10
	}
	if cfg.Vision.Concurrency == 0 {
		cfg.Vision.Concurrency = 4
	}
	if cfg.Datasets.ShopsURL == "" {
		cfg.Datasets.ShopsURL = DefaultShopsURL
	}
	if cfg.Datasets.ReviewsURL == "" {
		cfg.Datasets.ReviewsURL = DefaultReviewsURL
	}
	if cfg.Datasets.CatalogURL == "" {
		cfg.Datasets.CatalogURL = DefaultCatalogURL
	}
	if cfg.Datasets.TimeoutSecs == 0 {
		cfg.Datasets.TimeoutSecs = 60
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "RestaurantDB"
	}
	if cfg.Index.DefaultK == 0 {
		cfg.Index.DefaultK = 5
	}
	if cfg.Index.ReviewMismatch == "" {
		cfg.Index.ReviewMismatch = "fail"
	}
	if cfg.History.RowConcurrency == 0 {
		cfg.History.RowConcurrency = 2
	}
}
