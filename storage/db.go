package storage

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"

	"github.com/propshare/propshare/models"
)

// DB is the PostgreSQL Store driver.
type DB struct {
	*sqlx.DB
	log *zap.Logger
}

// NewDB connects to PostgreSQL and applies pending migrations.
func NewDB(dataSourceName, migrationsDir string, log *zap.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db.DB, migrationsDir, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{DB: db, log: log}, nil
}

func runMigrations(db *sql.DB, dir string, log *zap.Logger) error {
	migrations := &migrate.FileMigrationSource{Dir: dir}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	if n > 0 {
		log.Info("applied migrations", zap.Int("count", n))
	}
	return nil
}

func (d *DB) SaveProperty(p models.Property) error {
	query := `INSERT INTO properties (id, name, symbol, address, total_value, mint_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, symbol = EXCLUDED.symbol, address = EXCLUDED.address,
			total_value = EXCLUDED.total_value, mint_address = EXCLUDED.mint_address`
	_, err := d.Exec(query, p.ID, p.Name, p.Symbol, p.Address, p.TotalValue, p.MintAddress, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save property: %w", err)
	}
	return nil
}

func (d *DB) GetProperty(id string) (models.Property, bool, error) {
	var p models.Property
	err := d.Get(&p, `SELECT * FROM properties WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return models.Property{}, false, nil
	}
	if err != nil {
		return models.Property{}, false, fmt.Errorf("get property: %w", err)
	}
	return p, true, nil
}

func (d *DB) ListProperties() ([]models.Property, error) {
	var out []models.Property
	if err := d.Select(&out, `SELECT * FROM properties ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return out, nil
}

func (d *DB) SaveSale(s models.Sale) error {
	query := `INSERT INTO sales (property_id, price_per_token, min_purchase, max_purchase, max_supply, total_sold, is_active, sale_end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (property_id) DO UPDATE SET
			price_per_token = EXCLUDED.price_per_token, min_purchase = EXCLUDED.min_purchase,
			max_purchase = EXCLUDED.max_purchase, max_supply = EXCLUDED.max_supply,
			total_sold = EXCLUDED.total_sold, is_active = EXCLUDED.is_active,
			sale_end_time = EXCLUDED.sale_end_time, created_at = EXCLUDED.created_at`
	_, err := d.Exec(query, s.PropertyID, s.PricePerToken, s.MinPurchase, s.MaxPurchase,
		s.MaxSupply, s.TotalSold, s.IsActive, s.SaleEndTime, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save sale: %w", err)
	}
	return nil
}

func (d *DB) AllSales() ([]models.Sale, error) {
	var out []models.Sale
	if err := d.Select(&out, `SELECT * FROM sales`); err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}
	return out, nil
}

func (d *DB) SaveListing(l models.Listing) error {
	query := `INSERT INTO listings (id, property_id, seller, amount, price_per_token, creation_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET amount = EXCLUDED.amount, is_active = EXCLUDED.is_active`
	_, err := d.Exec(query, l.ID, l.PropertyID, l.Seller, l.Amount, l.PricePerToken, l.CreationTime, l.IsActive)
	if err != nil {
		return fmt.Errorf("save listing: %w", err)
	}
	return nil
}

func (d *DB) AllListings() ([]models.Listing, error) {
	var out []models.Listing
	if err := d.Select(&out, `SELECT * FROM listings ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	return out, nil
}

func (d *DB) SaveStakingPosition(p models.StakingPosition) error {
	query := `INSERT INTO staking_positions (property_id, holder, staked_amount, stake_start_time, last_checkpoint, accumulated_reward)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, holder) DO UPDATE SET
			staked_amount = EXCLUDED.staked_amount, stake_start_time = EXCLUDED.stake_start_time,
			last_checkpoint = EXCLUDED.last_checkpoint, accumulated_reward = EXCLUDED.accumulated_reward`
	_, err := d.Exec(query, p.PropertyID, p.Holder, p.StakedAmount, p.StakeStartTime, p.LastCheckpoint, p.AccumulatedReward)
	if err != nil {
		return fmt.Errorf("save staking position: %w", err)
	}
	return nil
}

func (d *DB) AllStakingPositions() ([]models.StakingPosition, error) {
	var out []models.StakingPosition
	if err := d.Select(&out, `SELECT * FROM staking_positions`); err != nil {
		return nil, fmt.Errorf("load staking positions: %w", err)
	}
	return out, nil
}

func (d *DB) SaveRevenueAccumulator(a *models.RevenueAccumulator) error {
	query := `INSERT INTO revenue_accumulators (property_id, total_received, cumulative_per_token, last_distribution)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id) DO UPDATE SET
			total_received = EXCLUDED.total_received,
			cumulative_per_token = EXCLUDED.cumulative_per_token,
			last_distribution = EXCLUDED.last_distribution`
	_, err := d.Exec(query, a.PropertyID, a.TotalReceived, a.CumulativePerToken.String(), a.LastDistribution)
	if err != nil {
		return fmt.Errorf("save revenue accumulator: %w", err)
	}
	return nil
}

func (d *DB) AllRevenueAccumulators() ([]*models.RevenueAccumulator, error) {
	rows, err := d.Queryx(`SELECT property_id, total_received, cumulative_per_token, last_distribution FROM revenue_accumulators`)
	if err != nil {
		return nil, fmt.Errorf("load revenue accumulators: %w", err)
	}
	defer rows.Close()

	var out []*models.RevenueAccumulator
	for rows.Next() {
		var (
			propertyID string
			received   int64
			cumulative string
			lastDist   sql.NullTime
		)
		if err := rows.Scan(&propertyID, &received, &cumulative, &lastDist); err != nil {
			return nil, fmt.Errorf("scan revenue accumulator: %w", err)
		}
		// cumulative_per_token is NUMERIC(78,0), carried as decimal text.
		cum, ok := new(big.Int).SetString(cumulative, 10)
		if !ok {
			return nil, fmt.Errorf("parse accumulator %q for property %s", cumulative, propertyID)
		}
		a := &models.RevenueAccumulator{
			PropertyID:         propertyID,
			TotalReceived:      received,
			CumulativePerToken: cum,
		}
		if lastDist.Valid {
			a.LastDistribution = lastDist.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) SaveClaimCheckpoint(c models.ClaimCheckpoint) error {
	query := `INSERT INTO claim_checkpoints (property_id, holder, total_claimed, last_claim)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (property_id, holder) DO UPDATE SET
			total_claimed = EXCLUDED.total_claimed, last_claim = EXCLUDED.last_claim`
	_, err := d.Exec(query, c.PropertyID, c.Holder, c.TotalClaimed, c.LastClaim)
	if err != nil {
		return fmt.Errorf("save claim checkpoint: %w", err)
	}
	return nil
}

func (d *DB) AllClaimCheckpoints() ([]models.ClaimCheckpoint, error) {
	var out []models.ClaimCheckpoint
	if err := d.Select(&out, `SELECT * FROM claim_checkpoints`); err != nil {
		return nil, fmt.Errorf("load claim checkpoints: %w", err)
	}
	return out, nil
}

func (d *DB) SaveProposal(p models.Proposal) error {
	query := `INSERT INTO proposals (id, property_id, proposer, title, description, document_hash, type, status,
			for_votes, against_votes, abstain_votes, total_votes,
			start_time, end_time, execution_time, quorum_required, majority_bps, executed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, for_votes = EXCLUDED.for_votes,
			against_votes = EXCLUDED.against_votes, abstain_votes = EXCLUDED.abstain_votes,
			total_votes = EXCLUDED.total_votes, execution_time = EXCLUDED.execution_time,
			executed = EXCLUDED.executed`
	_, err := d.Exec(query, p.ID, p.PropertyID, p.Proposer, p.Title, p.Description, p.DocumentHash,
		string(p.Type), string(p.Status), p.ForVotes, p.AgainstVotes, p.AbstainVotes, p.TotalVotes,
		p.StartTime, p.EndTime, p.ExecutionTime, p.QuorumRequired, p.MajorityBps, p.Executed, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("save proposal: %w", err)
	}
	return nil
}

func (d *DB) AllProposals() ([]models.Proposal, error) {
	var out []models.Proposal
	if err := d.Select(&out, `SELECT * FROM proposals ORDER BY id`); err != nil {
		return nil, fmt.Errorf("load proposals: %w", err)
	}
	return out, nil
}

func (d *DB) SaveVote(v models.VoteRecord) error {
	query := `INSERT INTO votes (proposal_id, voter, support, weight, voted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (proposal_id, voter) DO NOTHING`
	_, err := d.Exec(query, v.ProposalID, v.Voter, v.Support, v.Weight, v.VotedAt)
	if err != nil {
		return fmt.Errorf("save vote: %w", err)
	}
	return nil
}

func (d *DB) AllVotes() ([]models.VoteRecord, error) {
	var out []models.VoteRecord
	if err := d.Select(&out, `SELECT * FROM votes`); err != nil {
		return nil, fmt.Errorf("load votes: %w", err)
	}
	return out, nil
}

func (d *DB) SaveAccreditation(user string, accredited bool) error {
	query := `INSERT INTO accreditations (user_id, accredited)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET accredited = EXCLUDED.accredited`
	_, err := d.Exec(query, user, accredited)
	if err != nil {
		return fmt.Errorf("save accreditation: %w", err)
	}
	return nil
}

func (d *DB) LoadAccreditations() (map[string]bool, error) {
	rows, err := d.Queryx(`SELECT user_id, accredited FROM accreditations`)
	if err != nil {
		return nil, fmt.Errorf("load accreditations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var user string
		var accredited bool
		if err := rows.Scan(&user, &accredited); err != nil {
			return nil, fmt.Errorf("scan accreditation: %w", err)
		}
		out[user] = accredited
	}
	return out, rows.Err()
}

func (d *DB) SaveRole(user, role string) error {
	_, err := d.Exec(`INSERT INTO roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, user, role)
	if err != nil {
		return fmt.Errorf("save role: %w", err)
	}
	return nil
}

func (d *DB) RemoveRole(user, role string) error {
	_, err := d.Exec(`DELETE FROM roles WHERE user_id = $1 AND role = $2`, user, role)
	if err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}

func (d *DB) LoadRoles() (map[string][]string, error) {
	rows, err := d.Queryx(`SELECT user_id, role FROM roles`)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var user, role string
		if err := rows.Scan(&user, &role); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		out[user] = append(out[user], role)
	}
	return out, rows.Err()
}

func (d *DB) SaveOwnership(rec models.OwnershipRecord) error {
	query := `INSERT INTO ownership (user_id, property_id, balance, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, property_id) DO UPDATE SET
			balance = EXCLUDED.balance, updated_at = EXCLUDED.updated_at`
	_, err := d.Exec(query, rec.User, rec.PropertyID, rec.Balance, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save ownership: %w", err)
	}
	return nil
}

func (d *DB) LoadOwnership() ([]models.OwnershipRecord, error) {
	var out []models.OwnershipRecord
	if err := d.Select(&out, `SELECT * FROM ownership`); err != nil {
		return nil, fmt.Errorf("load ownership: %w", err)
	}
	return out, nil
}

func (d *DB) SaveCounter(name string, value int64) error {
	query := `INSERT INTO counters (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	_, err := d.Exec(query, name, value)
	if err != nil {
		return fmt.Errorf("save counter: %w", err)
	}
	return nil
}

func (d *DB) LoadCounter(name string) (int64, error) {
	var value int64
	err := d.Get(&value, `SELECT value FROM counters WHERE name = $1`, name)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load counter: %w", err)
	}
	return value, nil
}

func (d *DB) Close() error {
	return d.DB.Close()
}
