package models

/*
PolyMerit Models

This package contains the persisted models and the upstream payload shapes:

- user.go      - User accounts created by the magic-link flow
- auth.go      - Sessions, magic-link tokens, login attempts, rate-limit rows
- watchlist.go - Per-user watchlist items, unique on (user, market)
- market.go    - Gamma market snapshot (not persisted)
- trade.go     - Data API trades and CLOB price points (not persisted)
- utils.go     - Lenient numeric decoding and decimal helpers

Persisted models are registered in database.AutoMigrate().
*/
