package app

import "serotonyl.ru/minicasino/internal/db/postgres"

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, SQL: migration001Accounts},
	{Version: 2, SQL: migration002Casino},
	{Version: 3, SQL: migration003Missions},
	{Version: 4, SQL: migration004Inbox},
}

var migration001Accounts = `
CREATE TABLE IF NOT EXISTS accounts (
    user_id BIGINT PRIMARY KEY,
    username VARCHAR(255),
    balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_earned NUMERIC(16,2) NOT NULL DEFAULT 0,
    total_spent NUMERIC(16,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES accounts(user_id),
    amount NUMERIC(14,2) NOT NULL,
    transaction_type VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC);
`

var migration002Casino = `
CREATE TABLE IF NOT EXISTS casino_rounds (
    id BIGSERIAL PRIMARY KEY,
    round_id UUID UNIQUE NOT NULL,
    user_id BIGINT NOT NULL REFERENCES accounts(user_id),
    game_id VARCHAR(64) NOT NULL,
    game_kind VARCHAR(16) NOT NULL,
    stake NUMERIC(14,2) NOT NULL,
    payout NUMERIC(14,2) NOT NULL,
    bet NUMERIC(14,2) NOT NULL,
    result VARCHAR(8) NOT NULL,
    info TEXT,
    balance_after NUMERIC(14,2) NOT NULL,
    game_data JSONB,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_casino_rounds_user ON casino_rounds(user_id, created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS casino_stats (
    user_id BIGINT PRIMARY KEY REFERENCES accounts(user_id),
    total_plays INTEGER NOT NULL DEFAULT 0,
    total_wins INTEGER NOT NULL DEFAULT 0,
    total_wagered NUMERIC(16,2) NOT NULL DEFAULT 0,
    total_won NUMERIC(16,2) NOT NULL DEFAULT 0,
    biggest_win NUMERIC(14,2) NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

var migration003Missions = `
CREATE TABLE IF NOT EXISTS missions (
    user_id BIGINT PRIMARY KEY,
    plinko_plays INTEGER NOT NULL DEFAULT 0,
    rounds_started INTEGER NOT NULL DEFAULT 0,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    claimed BOOLEAN NOT NULL DEFAULT FALSE,
    daily_claimed_at TIMESTAMP,
    first_bet_claimed BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`

var migration004Inbox = `
CREATE TABLE IF NOT EXISTS inbox (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    category VARCHAR(16) NOT NULL,
    title VARCHAR(255) NOT NULL,
    body TEXT,
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_inbox_user ON inbox(user_id, created_at DESC, id DESC);
`
