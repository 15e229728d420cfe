package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    whop_user_id VARCHAR(64) NOT NULL UNIQUE,
    whop_experience_id VARCHAR(64) NOT NULL,
    credits INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS voice_models (
    id CHAR(36) PRIMARY KEY,
    user_id BIGINT NOT NULL,
    provider_model_id VARCHAR(64) NOT NULL,
    title VARCHAR(255) NOT NULL,
    state VARCHAR(16) NOT NULL DEFAULT 'created',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS generated_audio (
    id CHAR(36) PRIMARY KEY,
    user_id BIGINT NOT NULL,
    voice_model_id CHAR(36) NOT NULL,
    text TEXT NOT NULL,
    audio_url TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (voice_model_id) REFERENCES voice_models(id)
);

CREATE TABLE IF NOT EXISTS processed_confirmations (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    correlation_id VARCHAR(128) NOT NULL UNIQUE,
    user_id BIGINT NOT NULL,
    package_id VARCHAR(32) NOT NULL,
    credits INT NOT NULL,
    source VARCHAR(16) NOT NULL,
    processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users(id)
);
`
