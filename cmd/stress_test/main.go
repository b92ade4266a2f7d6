package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/adapter/storage"
	"github.com/rl1809/event-pos/internal/config"
	"github.com/rl1809/event-pos/internal/core/domain"
	"github.com/rl1809/event-pos/internal/core/service"
	"github.com/rl1809/event-pos/internal/port"
)

const (
	initialStock  = 20
	totalSessions = 50
)

// Every terminal puts one unit of the same item in its cart, then all of them
// commit at once. Exactly initialStock commits may succeed.
func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("failed to open mysql: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: cfg.RedisPoolSize})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	mysqlAdapter := storage.NewMySQLAdapter(db)
	if err := mysqlAdapter.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}
	redisAdapter := storage.NewRedisAdapter(rdb, storage.RedisTTLs{Cart: time.Minute})

	// Seed a fresh item
	result, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, "stress-test")
	if err != nil {
		log.Fatalf("failed to seed category: %v", err)
	}
	categoryID, _ := result.LastInsertId()

	now := time.Now()
	itemID, err := mysqlAdapter.CreateInventoryItem(ctx, domain.InventoryItem{
		Name:       "Stress Test Tee",
		CategoryID: categoryID,
		Price:      decimal.NewFromInt(25),
		Cost:       decimal.NewFromInt(10),
		Quantity:   initialStock,
		MinStock:   domain.DefaultMinStock,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		log.Fatalf("failed to seed item: %v", err)
	}

	var published atomic.Int32
	events := port.OrderEventPublisherFunc(func(ctx context.Context, event domain.OrderCommitted) error {
		published.Add(1)
		return nil
	})
	checkout := service.NewCheckoutService(mysqlAdapter, redisAdapter, mysqlAdapter, events, zap.NewNop())
	actor := domain.Profile{Role: domain.RolePOS}

	runID := fmt.Sprintf("stress-%d", now.UnixNano())
	sessionID := func(i int) string { return fmt.Sprintf("%s:%d", runID, i) }

	for i := 0; i < totalSessions; i++ {
		if _, err := checkout.AddToCart(ctx, sessionID(i), itemID); err != nil {
			log.Fatalf("failed to fill cart %d: %v", i, err)
		}
	}

	// Counters
	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalSessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := checkout.CommitOrder(ctx, sessionID(i), service.CommitRequest{PaymentMethod: "cash"}, actor)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
				log.Printf("session %d: unexpected error: %v", i, err)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Sessions:         %d\n", totalSessions)
	fmt.Printf("Committed:        %d\n", success)
	fmt.Printf("Sold Out:         %d\n", soldOut)
	fmt.Printf("Other Errors:     %d\n", otherCount.Load())
	fmt.Printf("Events Published: %d\n", published.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == initialStock && soldOut == totalSessions-initialStock {
		fmt.Printf("PASS: Exactly %d orders committed, %d sold out\n", initialStock, totalSessions-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d committed/%d sold out, got %d/%d\n",
			initialStock, totalSessions-initialStock, success, soldOut)
	}

	item, err := mysqlAdapter.GetInventoryItem(ctx, itemID)
	if err != nil || item == nil {
		log.Fatalf("failed to read final stock: %v", err)
	}
	fmt.Printf("Final Stock:      %d\n", item.Quantity)

	if item.Quantity == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", item.Quantity)
	}
}
