package store_test

import "github.com/riskscope/riskscope/pkg/config"

func configFor(backend, badgerPath string) config.StoreConfig {
	return config.StoreConfig{Backend: backend, BadgerPath: badgerPath}
}

func configForURL(url string) config.StoreConfig {
	return config.StoreConfig{Backend: "postgres", DatabaseURL: url}
}
