package testutil

// PharmacyMigrations returns the steady-state pharmacy schema for tests.
// Statements are applied in order.
func PharmacyMigrations() []string {
	return []string{
		// Medicines catalog (price fields owned here for discounting)
		`CREATE TABLE IF NOT EXISTS medicines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			category_id UUID,
			brand_id UUID,
			unit_price DECIMAL(10,2) NOT NULL,
			original_price DECIMAL(10,2),
			discount_flag BOOLEAN NOT NULL DEFAULT FALSE,
			discount_percent INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT medicines_discount_percent_range CHECK (discount_percent IS NULL OR (discount_percent >= 1 AND discount_percent <= 99))
		)`,

		// Batches
		`CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			medicine_id UUID NOT NULL REFERENCES medicines(id) ON DELETE CASCADE,
			batch_number VARCHAR(100) NOT NULL,
			expiry_date DATE NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			supplier_id UUID,
			purchase_date DATE,
			unit_cost DECIMAL(10,2),
			hidden BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT batches_quantity_non_negative CHECK (quantity >= 0),
			CONSTRAINT batches_batch_number_unique UNIQUE (medicine_id, batch_number)
		)`,

		// Alert resolution flags (alerts themselves are recomputed)
		`CREATE TABLE IF NOT EXISTS alert_resolutions (
			batch_id UUID NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			alert_type VARCHAR(50) NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			resolved_by UUID,
			resolved_at TIMESTAMPTZ,
			CONSTRAINT alert_resolutions_unique UNIQUE (batch_id, alert_type)
		)`,

		// Stock movement audit trail
		`CREATE TABLE IF NOT EXISTS stock_movements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			batch_id UUID NOT NULL,
			medicine_id UUID NOT NULL,
			movement_type VARCHAR(50) NOT NULL,
			quantity INT NOT NULL,
			previous_quantity INT NOT NULL,
			new_quantity INT NOT NULL,
			reference VARCHAR(255),
			performed_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT stock_movements_type_valid CHECK (movement_type IN ('reserve', 'restore', 'replace', 'receive'))
		)`,

		// Supplier return requests
		`CREATE TABLE IF NOT EXISTS supplier_return_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			batch_id UUID NOT NULL,
			medicine_id UUID NOT NULL,
			supplier_id UUID,
			quantity INT NOT NULL,
			reason TEXT NOT NULL,
			notes TEXT,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			new_batch_number VARCHAR(100),
			new_expiry_date DATE,
			new_quantity INT,
			requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			responded_at TIMESTAMPTZ,
			response_notes TEXT,
			CONSTRAINT supplier_returns_status_valid CHECK (status IN ('pending', 'approved', 'rejected'))
		)`,

		// Refund requests
		`CREATE TABLE IF NOT EXISTS refund_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			order_id UUID NOT NULL,
			user_id UUID NOT NULL,
			amount DECIMAL(10,2) NOT NULL,
			reason TEXT NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			refund_method VARCHAR(50),
			admin_id UUID,
			notes TEXT,
			requested_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			responded_at TIMESTAMPTZ,
			CONSTRAINT refunds_status_valid CHECK (status IN ('pending', 'approved', 'rejected', 'processing', 'completed'))
		)`,

		// Orders + lines (read-mostly here; refund approval flips refunded)
		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			total_amount DECIMAL(10,2) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'placed',
			refunded BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS order_lines (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			medicine_id UUID NOT NULL,
			batch_id UUID,
			quantity INT NOT NULL,
			unit_price DECIMAL(10,2) NOT NULL
		)`,
	}
}
