// Package postgres implements the PostgreSQL persistence layer for the
// NekoLog wellness hub.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE PROFILE STATE
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create profile state table
-- Version: 001
-- One row per profile holds the entire engine state: today's score,
-- yesterday's carry-over, the treat balance, the step reward gate date
-- and the subscription snapshot. Related fields are written together so
-- they cannot drift apart across keys.

CREATE TABLE IF NOT EXISTS profile_states (
    profile_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    cat_name VARCHAR(50) NOT NULL DEFAULT '',
    address VARCHAR(200) NOT NULL DEFAULT '',

    -- Daily wellness score state
    today_score INTEGER NOT NULL DEFAULT 0,
    yesterday_score INTEGER NOT NULL DEFAULT 50,
    last_calculation_day DATE,

    -- Treat economy state
    treat_balance INTEGER NOT NULL DEFAULT 7,
    last_reward_day DATE,

    -- Subscription snapshot
    subscription_state VARCHAR(20) NOT NULL DEFAULT 'none',
    subscription_start TIMESTAMP WITH TIME ZONE,
    subscription_end TIMESTAMP WITH TIME ZONE,

    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Constraints for data integrity
    CONSTRAINT valid_today_score CHECK (today_score >= 0 AND today_score <= 100),
    CONSTRAINT valid_yesterday_score CHECK (yesterday_score >= 0 AND yesterday_score <= 100),
    CONSTRAINT valid_treat_balance CHECK (treat_balance >= 0),
    CONSTRAINT valid_subscription_state CHECK (subscription_state IN ('none', 'trial', 'active', 'expired'))
);

CREATE INDEX IF NOT EXISTS idx_profile_states_last_calc ON profile_states(last_calculation_day);

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_profile_states_updated_at ON profile_states;
CREATE TRIGGER update_profile_states_updated_at
    BEFORE UPDATE ON profile_states
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE SCORE HISTORY
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create score history table
-- Version: 002
-- Purpose: One row per profile per day, written by the midnight rollover.
-- Feeds the weekly score chart and retrospective views.

CREATE TABLE IF NOT EXISTS score_history (
    id SERIAL PRIMARY KEY,
    profile_id UUID NOT NULL REFERENCES profile_states(profile_id) ON DELETE CASCADE,
    day DATE NOT NULL,
    score INTEGER NOT NULL,
    steps INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(profile_id, day),
    CONSTRAINT valid_history_score CHECK (score >= 0 AND score <= 100),
    CONSTRAINT valid_history_steps CHECK (steps >= 0)
);

CREATE INDEX IF NOT EXISTS idx_score_history_profile_day ON score_history(profile_id, day DESC);
`


// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE TREAT TRANSACTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create treat transaction tables
-- Version: 003
-- Purpose: Audit trail for every treat mutation, plus the credited store
-- transactions that make the restore flow idempotent.

CREATE TABLE IF NOT EXISTS treat_transactions (
    id SERIAL PRIMARY KEY,
    profile_id UUID NOT NULL REFERENCES profile_states(profile_id) ON DELETE CASCADE,
    amount INTEGER NOT NULL,
    balance_after INTEGER NOT NULL,
    reason VARCHAR(50) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_balance_after CHECK (balance_after >= 0)
);

CREATE INDEX IF NOT EXISTS idx_treat_transactions_profile ON treat_transactions(profile_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_treat_transactions_reason ON treat_transactions(reason);

-- Store transactions that have already produced a treat grant. The
-- restore flow replays the full entitlement stream; a primary key hit
-- here is what stops a second credit.
CREATE TABLE IF NOT EXISTS credited_transactions (
    profile_id UUID NOT NULL REFERENCES profile_states(profile_id) ON DELETE CASCADE,
    transaction_id VARCHAR(100) NOT NULL,
    amount INTEGER NOT NULL,
    credited_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (profile_id, transaction_id)
);
`

