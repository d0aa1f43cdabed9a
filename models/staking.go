package models

import "time"

// StakingPosition tracks one holder's locked tokens for one property.
// Restaking settles pending reward into AccumulatedReward and resets both
// clocks, so topping up restarts the lock for the entire position.
type StakingPosition struct {
	PropertyID        string    `json:"property_id" db:"property_id"`
	Holder            string    `json:"holder" db:"holder"`
	StakedAmount      int64     `json:"staked_amount" db:"staked_amount"`
	StakeStartTime    time.Time `json:"stake_start_time" db:"stake_start_time"`
	LastCheckpoint    time.Time `json:"last_checkpoint" db:"last_checkpoint"`
	AccumulatedReward int64     `json:"accumulated_reward" db:"accumulated_reward"`
}
